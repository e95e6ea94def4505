package utils

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/goombaio/namegenerator"
)

// GenerateDocumentName creates a random, memorable filename for text ingests
// submitted without one, e.g. "wispy-dust.txt"
func GenerateDocumentName() string {
	seed := time.Now().UTC().UnixNano()
	nameGenerator := namegenerator.NewNameGenerator(seed)

	// Some names might have underscores; convert to hyphens for consistency
	name := strings.ReplaceAll(nameGenerator.Generate(), "_", "-")

	return name + ".txt"
}

// SanitizeFilename turns an arbitrary title into a filename-safe slug.
// The extension, if any, is kept as is.
func SanitizeFilename(title string) string {
	ext := ""
	if i := strings.LastIndex(title, "."); i > 0 && i < len(title)-1 && !strings.ContainsAny(title[i:], " /\\") {
		ext = strings.ToLower(title[i:])
		title = title[:i]
	}

	// Replace spaces with hyphens and convert to lowercase
	name := strings.ToLower(strings.ReplaceAll(title, " ", "-"))

	replacer := strings.NewReplacer(
		"_", "-",
		".", "-",
		",", "-",
		";", "-",
		":", "-",
		"/", "-",
		"\\", "-",
	)
	name = replacer.Replace(name)

	// Replace multiple consecutive hyphens with a single hyphen
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.Trim(name, "-")
	if name == "" {
		return ""
	}

	return name + ext
}

// HumanSize formats a byte count as B, KB, MB or GB
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit && exp < 2; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMG"[exp])
}

// CopyToClipboard copies the given text to the system clipboard
func CopyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		cmd = exec.Command("xclip", "-selection", "clipboard")
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("unsupported platform for clipboard operations")
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
