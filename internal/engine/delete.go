package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tildaslashalef/docsync/internal/loggy"
)

// StageDelete marks a document for deletion pending confirmation
func (e *Engine) StageDelete(id string) {
	e.mu.Lock()
	e.stagedDelete = id
	e.mu.Unlock()

	e.publish()
}

// CancelDelete drops the staged single delete
func (e *Engine) CancelDelete() {
	e.mu.Lock()
	e.stagedDelete = ""
	e.mu.Unlock()

	e.publish()
}

// ConfirmDelete deletes the staged document, then refreshes folders and documents.
// The staged target is cleared whatever the outcome.
func (e *Engine) ConfirmDelete(ctx context.Context) error {
	e.mu.Lock()
	id := e.stagedDelete
	e.stagedDelete = ""
	name := e.documentNameLocked(id)
	active := e.active
	e.mu.Unlock()
	e.publish()

	if id == "" {
		return ErrNothingStaged
	}
	if !active {
		return ErrNotActive
	}

	ctx, _ = loggy.EnsureRequestID(ctx)
	logger := e.logger.WithContext(ctx)

	logger.Info("Deleting document", "document_id", id)
	if err := e.store.DeleteDocument(ctx, id); err != nil {
		logger.WithError(err).Error("Failed to delete document", "document_id", id)
		e.notifyError("Failed to delete document", err)
		return err
	}

	e.mu.Lock()
	if e.detail != nil && e.detail.ExternalID == id {
		e.detail = nil
	}
	e.mu.Unlock()

	e.cache.invalidateContaining(id)
	e.hooks.documentDeleted(name)

	refreshErr := e.RefreshFolders(ctx)
	e.notify(LevelSuccess, "Document deleted", fmt.Sprintf("Deleted %s.", name))

	if refreshErr != nil {
		logger.WithError(refreshErr).Warn("Refresh after delete failed")
	}
	return nil
}

// StageBatchDelete stages the current selection for deletion and returns its size
func (e *Engine) StageBatchDelete() int {
	e.mu.Lock()
	e.stagedBatch = e.selection.IDs()
	n := len(e.stagedBatch)
	e.mu.Unlock()

	e.publish()
	return n
}

// CancelBatchDelete drops the staged batch
func (e *Engine) CancelBatchDelete() {
	e.mu.Lock()
	e.stagedBatch = nil
	e.mu.Unlock()

	e.publish()
}

// ConfirmBatchDelete deletes every staged document in parallel. Each delete
// succeeds or fails on its own; the selection is cleared afterwards regardless.
func (e *Engine) ConfirmBatchDelete(ctx context.Context) (BatchDeleteResult, error) {
	e.mu.Lock()
	ids := e.stagedBatch
	e.stagedBatch = nil
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = e.documentNameLocked(id)
	}
	active := e.active
	e.mu.Unlock()
	e.publish()

	result := BatchDeleteResult{Requested: len(ids), Failed: map[string]error{}}
	if len(ids) == 0 {
		return result, ErrNothingStaged
	}
	if !active {
		e.mu.Lock()
		e.selection.Clear()
		e.mu.Unlock()
		e.publish()
		return result, ErrNotActive
	}

	ctx, _ = loggy.EnsureRequestID(ctx)
	logger := e.logger.WithContext(ctx)
	logger.Info("Deleting documents", "count", len(ids))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.opts.DeleteConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			err := e.store.DeleteDocument(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WithError(err).Error("Failed to delete document", "document_id", id)
				result.Failed[id] = err
				return nil
			}
			result.Deleted = append(result.Deleted, id)
			return nil
		})
	}
	_ = g.Wait()

	deleted := make(map[string]struct{}, len(result.Deleted))
	for _, id := range result.Deleted {
		deleted[id] = struct{}{}
	}

	e.mu.Lock()
	if e.detail != nil {
		if _, ok := deleted[e.detail.ExternalID]; ok {
			e.detail = nil
		}
	}
	e.selection.Clear()
	e.mu.Unlock()
	e.publish()

	for _, id := range result.Deleted {
		e.cache.invalidateContaining(id)
		e.hooks.documentDeleted(names[id])
	}

	if err := e.RefreshFolders(ctx); err != nil {
		logger.WithError(err).Warn("Refresh after batch delete failed")
	}

	level := LevelSuccess
	switch {
	case len(result.Deleted) == 0:
		level = LevelError
	case len(result.Failed) > 0:
		level = LevelWarning
	}
	e.notify(level, "Batch delete", result.Message())

	return result, nil
}

// batchDeleteMessage distinguishes full success, partial failure and total failure
func batchDeleteMessage(deleted, failed int) string {
	switch {
	case failed == 0:
		return fmt.Sprintf("Deleted %d %s.", deleted, plural(deleted, "document", "documents"))
	case deleted == 0:
		return fmt.Sprintf("Failed to delete %d %s.", failed, plural(failed, "document", "documents"))
	default:
		return fmt.Sprintf("Deleted %d %s. %d %s failed.",
			deleted, plural(deleted, "document", "documents"),
			failed, plural(failed, "deletion", "deletions"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
