package commands

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/inbox"
)

func init() {
	color.NoColor = true
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := newConsoleNotifier(&buf)

	n.Notify(engine.Notification{ID: "upl_1", Level: engine.LevelInfo, Title: "Uploading", Message: "Uploading a.pdf...", Persistent: true})
	assert.Contains(t, n.pending, "upl_1")

	n.Notify(engine.Notification{ID: "upl_1", Level: engine.LevelSuccess, Title: "Upload complete", Message: "Uploaded a.pdf."})
	assert.NotContains(t, n.pending, "upl_1")

	n.Notify(engine.Notification{ID: "ntf_2", Level: engine.LevelError, Message: "boom"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "… Uploading a.pdf...", lines[0])
	assert.Equal(t, "✓ Upload complete: Uploaded a.pdf.", lines[1])
	assert.Equal(t, "✗ boom", lines[2])
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupe([]string{"a", " b ", "a", "", "b"}))
	assert.Empty(t, dedupe(nil))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", formatTime(""))
	assert.Equal(t, "yesterday", formatTime("yesterday"))
	assert.NotEqual(t, "2025-01-02T03:04:05Z", formatTime("2025-01-02T03:04:05Z"))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) string {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}
	pdf := write("a.pdf")
	write("b.txt")
	nested := write("sub/c.pdf")
	write(".git/d.pdf")
	explicit := write("e.txt")

	filter, err := inbox.NewFilter("*.pdf")
	require.NoError(t, err)

	paths, err := collectFiles([]string{dir, explicit}, filter)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{pdf, nested, explicit}, paths)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")}, filter)
	assert.ErrorContains(t, err, "error accessing")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			cliApp := &cli.App{Reader: strings.NewReader(tt.input), Writer: &out}
			c := cli.NewContext(cliApp, flag.NewFlagSet("test", flag.ContinueOnError), nil)

			assert.Equal(t, tt.want, confirm(c, "Delete?"))
			assert.Contains(t, out.String(), "Delete?")
		})
	}
}
