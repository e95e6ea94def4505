package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
)

// fakeUploader records the files submitted through the form
type fakeUploader struct {
	mu      sync.Mutex
	form    engine.UploadForm
	names   []string
	forms   []engine.UploadForm
	failFor string
}

func (f *fakeUploader) SetUploadForm(form engine.UploadForm) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.form = form
}

func (f *fakeUploader) UploadFile(ctx context.Context) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.form.Files) == 0 {
		return nil, engine.ErrEmptyUpload
	}
	name := f.form.Files[0].Name
	if name == f.failFor {
		return nil, errors.New("rejected")
	}
	f.names = append(f.names, name)
	f.forms = append(f.forms, f.form)
	return &store.Document{ExternalID: "id-" + name, Filename: name}, nil
}

func (f *fakeUploader) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	// Allow fsnotify to register the watch
	time.Sleep(100 * time.Millisecond)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		match   bool
	}{
		{"", "/in/report.pdf", true},
		{"*.pdf", "/in/report.pdf", true},
		{"*.pdf", "/in/notes.txt", false},
		{"*.{pdf,docx}", "/in/contract.docx", true},
		{"*", "/in/.hidden", false},
		{"*", "/in/draft.txt~", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			f, err := NewFilter(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.match, f.Match(tt.path))
		})
	}
}

func TestNewFilterRejectsBadPattern(t *testing.T) {
	_, err := NewFilter("[")
	assert.Error(t, err)
}

func TestNewRequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := New(&fakeUploader{}, Options{Dir: file}, loggy.NewNoopLogger())
	assert.Error(t, err)
}

func TestWatcherUploadsNewFiles(t *testing.T) {
	dir := t.TempDir()
	uploader := &fakeUploader{}

	w, err := New(uploader, Options{
		Dir:        dir,
		Include:    "*.pdf",
		Debounce:   20 * time.Millisecond,
		Metadata:   `{"source":"inbox"}`,
		UseColpali: true,
	}, loggy.NewNoopLogger())
	require.NoError(t, err)
	startWatcher(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("txt"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.7"), 0644))

	assert.Eventually(t, func() bool {
		return len(uploader.uploaded()) == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"report.pdf"}, uploader.uploaded())

	uploader.mu.Lock()
	form := uploader.forms[0]
	uploader.mu.Unlock()
	assert.Equal(t, `{"source":"inbox"}`, form.Metadata)
	assert.True(t, form.UseColpali)
	assert.Equal(t, []byte("%PDF-1.7"), form.Files[0].Data)
	assert.Equal(t, 1, w.Stats().Uploaded)
}

func TestWatcherScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("c"), 0644))

	uploader := &fakeUploader{failFor: "c.txt"}
	w, err := New(uploader, Options{
		Dir:          dir,
		Debounce:     10 * time.Millisecond,
		ScanExisting: true,
	}, loggy.NewNoopLogger())
	require.NoError(t, err)
	startWatcher(t, w)

	assert.Eventually(t, func() bool {
		s := w.Stats()
		return s.Uploaded == 2 && s.Failed == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, uploader.uploaded())
}
