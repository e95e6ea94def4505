package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Document lifecycle states reported in system metadata
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Metadata keys the store and the engine both understand
const (
	KeyStatus     = "status"
	KeyUpdatedAt  = "updated_at"
	KeyFolderName = "folder_name"
)

// Document is a document record as returned by the store
type Document struct {
	ExternalID     string         `json:"external_id"`
	Filename       string         `json:"filename,omitempty"`
	ContentType    string         `json:"content_type,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	SystemMetadata map[string]any `json:"system_metadata"`
}

// Status returns the lifecycle status, or an empty string when the store omitted it
func (d *Document) Status() string {
	if d.SystemMetadata == nil {
		return ""
	}
	s, _ := d.SystemMetadata[KeyStatus].(string)
	return s
}

// UpdatedAt returns the last update timestamp as reported by the store
func (d *Document) UpdatedAt() string {
	if d.SystemMetadata == nil {
		return ""
	}
	switch v := d.SystemMetadata[KeyUpdatedAt].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// FolderName returns the folder-name marker from system metadata, falling back to user metadata
func (d *Document) FolderName() string {
	if s, ok := d.SystemMetadata[KeyFolderName].(string); ok && s != "" {
		return s
	}
	if s, ok := d.Metadata[KeyFolderName].(string); ok {
		return s
	}
	return ""
}

// DisplayName returns the filename, or the id for text documents without one
func (d *Document) DisplayName() string {
	if d.Filename != "" {
		return d.Filename
	}
	return d.ExternalID
}

// Clone returns a copy whose metadata maps can be modified independently
func (d Document) Clone() Document {
	d.Metadata = cloneMap(d.Metadata)
	d.SystemMetadata = cloneMap(d.SystemMetadata)
	return d
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FolderSummary is one entry of the folder summary list
type FolderSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DocCount  *int   `json:"doc_count,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FolderDetail carries the member document ids of a folder
type FolderDetail struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DocumentIDs []string `json:"document_ids"`
}

// DocumentStatus is the response of a status check
type DocumentStatus struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

// File is an in-memory file ready for upload
type File struct {
	Name string
	Data []byte
}

// Size returns the file size in bytes
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// ReadFile loads a file from disk for upload
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return File{Name: filepath.Base(path), Data: data}, nil
}

// ReadAll loads upload content from a reader, used for stdin ingests
func ReadAll(name string, r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", name, err)
	}
	return File{Name: name, Data: data}, nil
}

// UploadOptions are the form values sent with file uploads.
// Metadata and Rules are passed through as raw text.
type UploadOptions struct {
	Metadata   string
	Rules      string
	UseColpali bool
	FolderName string
}

// TextIngestRequest is the body of a text ingest
type TextIngestRequest struct {
	Content    string         `json:"content"`
	Filename   string         `json:"filename,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	Rules      []any          `json:"rules"`
	UseColpali bool           `json:"use_colpali"`
	FolderName string         `json:"folder_name,omitempty"`
}

// UploadError describes one failed file of a batch upload
type UploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchUploadResult is the response of a multi-file upload
type BatchUploadResult struct {
	Documents []Document    `json:"documents"`
	Errors    []UploadError `json:"errors,omitempty"`
}

// DocumentIDs returns the ids of the created documents
func (r *BatchUploadResult) DocumentIDs() []string {
	ids := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		ids = append(ids, d.ExternalID)
	}
	return ids
}
