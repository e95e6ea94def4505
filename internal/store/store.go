// Package store talks to the remote document store.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is matched by errors for missing folders or documents
var ErrNotFound = errors.New("not found")

// Store is the remote document store consumed by the engine
type Store interface {
	ListDocuments(ctx context.Context) ([]Document, error)
	ListFolderSummaries(ctx context.Context) ([]FolderSummary, error)
	GetFolder(ctx context.Context, id string) (*FolderDetail, error)
	BatchGetDocuments(ctx context.Context, ids []string) ([]Document, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	DeleteDocument(ctx context.Context, id string) error
	GetDocumentStatus(ctx context.Context, id string) (*DocumentStatus, error)
	UploadFile(ctx context.Context, file File, opts UploadOptions) (*Document, error)
	UploadFiles(ctx context.Context, files []File, opts UploadOptions) (*BatchUploadResult, error)
	UploadText(ctx context.Context, req TextIngestRequest) (*Document, error)
	DownloadURL(ctx context.Context, id string) (string, error)
}
