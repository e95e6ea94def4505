package inbox

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides which files are eligible for upload
type Filter struct {
	pattern string
	glob    glob.Glob
}

// NewFilter compiles a glob matched against base file names. An empty pattern matches everything.
func NewFilter(pattern string) (*Filter, error) {
	if pattern == "" {
		pattern = "*"
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
	}

	return &Filter{pattern: pattern, glob: g}, nil
}

// Match reports whether path should be uploaded. Hidden and editor temp files never match.
func (f *Filter) Match(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	return f.glob.Match(name)
}

// Pattern returns the source pattern
func (f *Filter) Pattern() string {
	return f.pattern
}
