package engine

import (
	"context"
	"errors"

	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
)

// RefreshFolders fetches the folder summary list and replaces folder state.
// On success the folders-updated listeners run before it returns, so the
// returned error also covers the cascaded document refresh.
func (e *Engine) RefreshFolders(ctx context.Context) error {
	ctx, _ = loggy.EnsureRequestID(ctx)
	logger := e.logger.WithContext(ctx)

	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	e.folderGen++
	gen := e.folderGen
	e.foldersLoading = true
	e.mu.Unlock()
	e.publish()

	logger.Debug("Fetching folder summaries", "generation", gen)
	folders, err := e.store.ListFolderSummaries(ctx)

	e.mu.Lock()
	if gen != e.folderGen || !e.active {
		e.mu.Unlock()
		logger.Debug("Discarding stale folder response", "generation", gen)
		return nil
	}
	e.foldersLoading = false

	if err != nil {
		// Keep the last known good folders; a deferred scope change runs against them
		deferred := e.pendingScopeFetch && e.foldersLoaded
		e.pendingScopeFetch = false
		scope := e.scope
		e.mu.Unlock()

		e.publish()
		logger.WithError(err).Error("Failed to load folders")
		e.notifyError("Failed to load folders", err)

		if deferred {
			if docErr := e.refreshDocuments(ctx, scope); docErr != nil {
				return errors.Join(err, docErr)
			}
		}
		return err
	}

	if folders == nil {
		folders = []store.FolderSummary{}
	}
	stale := changedFolders(e.folders, folders)
	e.folders = folders
	e.foldersLoaded = true
	e.pendingScopeFetch = false
	listeners := append([]foldersUpdatedFunc(nil), e.foldersUpdated...)
	e.mu.Unlock()

	for _, id := range stale {
		e.cache.invalidate(id)
	}

	logger.Debug("Folders loaded", "count", len(folders), "invalidated", len(stale))
	e.publish()

	var errs []error
	for _, fn := range listeners {
		if err := fn(ctx, folders); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Folders returns the current folder summaries
func (e *Engine) Folders() []store.FolderSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]store.FolderSummary(nil), e.folders...)
}

// changedFolders returns ids of folders whose membership may have changed
// between two summary lists: removed folders and folders whose document count moved.
func changedFolders(prev, next []store.FolderSummary) []string {
	if len(prev) == 0 {
		return nil
	}

	nextByID := make(map[string]store.FolderSummary, len(next))
	for _, f := range next {
		nextByID[f.ID] = f
	}

	var ids []string
	for _, old := range prev {
		cur, ok := nextByID[old.ID]
		if !ok {
			ids = append(ids, old.ID)
			continue
		}
		if old.DocCount != nil && cur.DocCount != nil && *old.DocCount != *cur.DocCount {
			ids = append(ids, old.ID)
		}
	}
	return ids
}
