package engine

import (
	"context"
	"fmt"

	"github.com/tildaslashalef/docsync/internal/store"
)

// documentsOnFoldersUpdated decides whether a folder refresh triggers a document fetch
func (e *Engine) documentsOnFoldersUpdated(ctx context.Context, folders []store.FolderSummary) error {
	e.mu.Lock()
	scope := e.scope

	if len(folders) == 0 && scope.IsNone() {
		// Nothing to select
		e.docGen++
		e.replaceDocumentsLocked(nil)
		e.documentsLoading = false
		e.mu.Unlock()

		e.publish()
		e.reconcilePoller()
		return nil
	}

	if e.firstCascadePending {
		e.firstCascadePending = false
		if scope.IsNone() && !e.initialScopeRequested {
			e.mu.Unlock()
			e.logger.Debug("Skipping document fetch on first display of folder grid")
			return nil
		}
	}
	e.mu.Unlock()

	return e.refreshDocuments(ctx, scope)
}

// refreshDocuments loads the documents of a scope. Only the latest issued fetch
// is applied; earlier responses are dropped.
func (e *Engine) refreshDocuments(ctx context.Context, scope Scope) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	e.docGen++
	gen := e.docGen

	if scope.IsNone() {
		e.replaceDocumentsLocked(nil)
		e.documentsLoading = false
		e.mu.Unlock()

		e.publish()
		e.reconcilePoller()
		return nil
	}

	e.documentsLoading = true
	folders := e.folders
	e.mu.Unlock()
	e.publish()

	logger := e.logger.WithContext(ctx)
	logger.Debug("Fetching documents", "scope", scope.String(), "generation", gen)
	docs, err := e.fetchScope(ctx, scope, folders)

	e.mu.Lock()
	if gen != e.docGen || !e.active {
		e.mu.Unlock()
		logger.Debug("Discarding stale document response", "scope", scope.String(), "generation", gen)
		return nil
	}
	e.documentsLoading = false

	if err != nil {
		// Stale documents must not be shown as current
		e.replaceDocumentsLocked(nil)
		e.mu.Unlock()

		e.publish()
		e.reconcilePoller()
		logger.WithError(err).Error("Failed to load documents", "scope", scope.String())
		e.notifyError("Failed to load documents", err)
		return err
	}

	normalized := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		normalized = append(normalized, normalizeDocument(d))
	}
	e.replaceDocumentsLocked(normalized)
	e.mu.Unlock()

	logger.Debug("Documents loaded", "scope", scope.String(), "count", len(normalized))
	e.publish()
	e.reconcilePoller()
	return nil
}

// fetchScope resolves the documents of a non-empty scope
func (e *Engine) fetchScope(ctx context.Context, scope Scope, folders []store.FolderSummary) ([]store.Document, error) {
	if scope.Kind == ScopeAll {
		return e.store.ListDocuments(ctx)
	}

	var folderID string
	for _, f := range folders {
		if f.Name == scope.Folder {
			folderID = f.ID
			break
		}
	}
	if folderID == "" {
		// Unknown folder is an empty scope
		e.logger.Debug("Folder not found in summaries", "folder", scope.Folder)
		return []store.Document{}, nil
	}

	ids, err := e.cache.resolve(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("resolving folder %s: %w", scope.Folder, err)
	}
	if len(ids) == 0 {
		return []store.Document{}, nil
	}

	return e.store.BatchGetDocuments(ctx, ids)
}

// replaceDocumentsLocked swaps in a new document list and drops selections that left it
func (e *Engine) replaceDocumentsLocked(docs []store.Document) {
	e.documents = docs

	present := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		present[d.ExternalID] = struct{}{}
	}
	e.selection.Retain(present)
}

// Documents returns copies of the loaded documents
func (e *Engine) Documents() []store.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]store.Document, len(e.documents))
	for i, d := range e.documents {
		out[i] = d.Clone()
	}
	return out
}

func (e *Engine) processingIDsLocked() []string {
	var ids []string
	for _, d := range e.documents {
		if d.Status() == store.StatusProcessing {
			ids = append(ids, d.ExternalID)
		}
	}
	return ids
}

// normalizeDocument guarantees system metadata and marks in-flight ingests as processing
func normalizeDocument(d store.Document) store.Document {
	d = d.Clone()
	if d.SystemMetadata == nil {
		d.SystemMetadata = map[string]any{}
	}
	if d.Status() == "" && d.FolderName() != "" {
		d.SystemMetadata[store.KeyStatus] = store.StatusProcessing
	}
	return d
}
