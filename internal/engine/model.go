package engine

import (
	"errors"

	"github.com/tildaslashalef/docsync/internal/store"
)

var (
	// ErrNotActive is returned by operations invoked outside Activate/Deactivate
	ErrNotActive = errors.New("engine is not active")
	// ErrNothingStaged is returned when a delete is confirmed without a staged target
	ErrNothingStaged = errors.New("nothing staged for deletion")
	// ErrEmptyUpload is returned when an upload has no file or text to send
	ErrEmptyUpload = errors.New("nothing to upload")
	// ErrTooManyFiles is returned when a single-file upload holds several files
	ErrTooManyFiles = errors.New("single-file upload holds several files")
)

// ScopeKind distinguishes the three selection scopes
type ScopeKind int

const (
	// ScopeNone loads no documents (folder grid)
	ScopeNone ScopeKind = iota
	// ScopeAll loads every document without folder resolution
	ScopeAll
	// ScopeFolder loads the members of one named folder
	ScopeFolder
)

// Scope is the selection that decides which documents are in view
type Scope struct {
	Kind   ScopeKind
	Folder string
}

// NoScope returns the empty scope
func NoScope() Scope { return Scope{Kind: ScopeNone} }

// AllScope returns the scope covering every document
func AllScope() Scope { return Scope{Kind: ScopeAll} }

// FolderScope returns the scope of a named folder
func FolderScope(name string) Scope {
	if name == "" {
		return NoScope()
	}
	return Scope{Kind: ScopeFolder, Folder: name}
}

// ParseScope maps "" to none, "all" to all and anything else to a folder name
func ParseScope(s string) Scope {
	switch s {
	case "":
		return NoScope()
	case "all":
		return AllScope()
	default:
		return FolderScope(s)
	}
}

// IsNone reports whether no documents are in scope
func (s Scope) IsNone() bool { return s.Kind == ScopeNone }

// FolderName returns the folder name for folder scopes and "" otherwise
func (s Scope) FolderName() string {
	if s.Kind == ScopeFolder {
		return s.Folder
	}
	return ""
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeAll:
		return "all"
	case ScopeFolder:
		return s.Folder
	default:
		return "none"
	}
}

// CheckState is the tri-state value of a "select all" checkbox
type CheckState int

const (
	Unchecked CheckState = iota
	Checked
	Indeterminate
)

func (c CheckState) String() string {
	switch c {
	case Checked:
		return "checked"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

// UploadForm holds the values of the upload form
type UploadForm struct {
	Text       string
	Filename   string
	Files      []store.File
	Metadata   string
	Rules      string
	UseColpali bool
}

// State is an immutable snapshot of the engine
type State struct {
	Active             bool
	Scope              Scope
	Folders            []store.FolderSummary
	FoldersLoading     bool
	Documents          []store.Document
	DocumentsLoading   bool
	Selected           []string
	SelectAll          CheckState
	Detail             *store.Document
	PendingDelete      string
	PendingBatchDelete int
	Polling            bool
	Form               UploadForm
}

// Processing returns the documents still being ingested
func (s State) Processing() []store.Document {
	var out []store.Document
	for _, d := range s.Documents {
		if d.Status() == store.StatusProcessing {
			out = append(out, d)
		}
	}
	return out
}

// IsSelected reports whether a document is checked
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// BatchDeleteResult tallies a batch delete
type BatchDeleteResult struct {
	Requested int
	Deleted   []string
	Failed    map[string]error
}

// Message returns the user-facing summary of the batch
func (r BatchDeleteResult) Message() string {
	return batchDeleteMessage(len(r.Deleted), len(r.Failed))
}
