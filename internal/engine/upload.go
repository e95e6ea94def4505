package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/ulid"
)

// uploadTarget is what an upload captures when it starts
type uploadTarget struct {
	form     UploadForm
	folder   string
	folderID string
}

// rejection explains why a form cannot be uploaded
type rejection struct {
	err     error
	title   string
	message string
}

func emptyForm(message string) *rejection {
	return &rejection{err: ErrEmptyUpload, title: "Nothing to upload", message: message}
}

// beginUpload validates and snapshots the form, resets it and announces the upload.
// A rejected form is left as it is.
func (e *Engine) beginUpload(ctx context.Context, valid func(UploadForm) *rejection, title string, describe func(UploadForm) string) (string, uploadTarget, error) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return "", uploadTarget{}, ErrNotActive
	}
	form := e.form
	form.Files = append([]store.File(nil), e.form.Files...)
	if r := valid(form); r != nil {
		e.mu.Unlock()
		return "", uploadTarget{}, e.rejectUpload(r)
	}

	target := uploadTarget{form: form, folder: e.scope.FolderName()}
	if target.folder != "" {
		target.folderID, _ = e.folderIDLocked(target.folder)
	}
	e.form = e.blankForm()
	e.mu.Unlock()

	id := ulid.UploadID()
	e.logger.WithContext(ctx).Debug("Upload started", "upload_id", id, "folder", target.folder)
	e.notifier.Notify(Notification{
		ID:         id,
		Level:      LevelInfo,
		Title:      title,
		Message:    describe(form),
		Persistent: true,
	})
	e.publish()

	return id, target, nil
}

// finishUpload refreshes folders, letting the cascade reload documents, and
// replaces the in-progress notification
func (e *Engine) finishUpload(ctx context.Context, id string, target uploadTarget, n Notification) {
	if target.folderID != "" {
		e.cache.invalidate(target.folderID)
	}

	if err := e.RefreshFolders(ctx); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Refresh after upload failed")
	}

	n.ID = id
	e.notifier.Notify(n)
}

func (e *Engine) failUpload(id string, err error) {
	e.notifier.Notify(Notification{
		ID:      id,
		Level:   LevelError,
		Title:   "Upload failed",
		Message: err.Error(),
	})
}

func (e *Engine) rejectUpload(r *rejection) error {
	e.notify(LevelError, r.title, r.message)
	return r.err
}

func uploadOptions(t uploadTarget) store.UploadOptions {
	return store.UploadOptions{
		Metadata:   t.form.Metadata,
		Rules:      t.form.Rules,
		UseColpali: t.form.UseColpali,
		FolderName: t.folder,
	}
}

// UploadFile uploads the single file of the form. Forms holding several files
// go through UploadFiles.
func (e *Engine) UploadFile(ctx context.Context) (*store.Document, error) {
	ctx, _ = loggy.EnsureRequestID(ctx)
	id, target, err := e.beginUpload(ctx, func(f UploadForm) *rejection {
		switch len(f.Files) {
		case 0:
			return emptyForm("Please select a file to upload.")
		case 1:
			return nil
		default:
			return &rejection{
				err:     ErrTooManyFiles,
				title:   "Too many files",
				message: fmt.Sprintf("%d files selected. Upload them as a batch.", len(f.Files)),
			}
		}
	}, "Uploading", func(f UploadForm) string {
		return fmt.Sprintf("Uploading %s...", f.Files[0].Name)
	})
	if err != nil {
		return nil, err
	}
	file := target.form.Files[0]

	e.logger.WithContext(ctx).Info("Uploading file", "file", file.Name, "size", file.Size(), "folder", target.folder)
	doc, err := e.store.UploadFile(ctx, file, uploadOptions(target))
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("File upload failed", "file", file.Name)
		e.failUpload(id, err)
		return nil, err
	}

	e.hooks.documentUploaded(file.Name, file.Size())
	e.finishUpload(ctx, id, target, Notification{
		Level:   LevelSuccess,
		Title:   "Upload complete",
		Message: fmt.Sprintf("Uploaded %s.", file.Name),
	})
	return doc, nil
}

// UploadFiles uploads every file of the form in one request. A response listing
// per-file errors is a partial failure, not an error.
func (e *Engine) UploadFiles(ctx context.Context) (*store.BatchUploadResult, error) {
	ctx, _ = loggy.EnsureRequestID(ctx)
	id, target, err := e.beginUpload(ctx, func(f UploadForm) *rejection {
		if len(f.Files) == 0 {
			return emptyForm("Please select files to upload.")
		}
		return nil
	}, "Uploading", func(f UploadForm) string {
		return fmt.Sprintf("Uploading %d %s...", len(f.Files), plural(len(f.Files), "file", "files"))
	})
	if err != nil {
		return nil, err
	}
	files := target.form.Files

	e.logger.WithContext(ctx).Info("Uploading files", "count", len(files), "folder", target.folder)
	result, err := e.store.UploadFiles(ctx, files, uploadOptions(target))
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Batch upload failed", "count", len(files))
		e.failUpload(id, err)
		return nil, err
	}

	failed := make(map[string]struct{}, len(result.Errors))
	for _, ue := range result.Errors {
		failed[ue.Filename] = struct{}{}
		e.logger.Warn("File rejected by store", "file", ue.Filename, "error", ue.Error)
	}
	for _, f := range files {
		if _, ok := failed[f.Name]; !ok {
			e.hooks.documentUploaded(f.Name, f.Size())
		}
	}

	e.finishUpload(ctx, id, target, batchUploadNotification(len(files), result))
	return result, nil
}

func batchUploadNotification(total int, result *store.BatchUploadResult) Notification {
	if len(result.Errors) == 0 {
		return Notification{
			Level:   LevelSuccess,
			Title:   "Upload complete",
			Message: fmt.Sprintf("Uploaded %d %s.", total, plural(total, "file", "files")),
		}
	}

	names := make([]string, 0, len(result.Errors))
	for _, ue := range result.Errors {
		names = append(names, ue.Filename)
	}

	uploaded := len(result.Documents)
	if uploaded == 0 {
		return Notification{
			Level:   LevelError,
			Title:   "Upload failed",
			Message: fmt.Sprintf("No files were uploaded. Failed: %s.", strings.Join(names, ", ")),
		}
	}

	return Notification{
		Level: LevelWarning,
		Title: "Upload partially failed",
		Message: fmt.Sprintf("Uploaded %d of %d files. Failed: %s.",
			uploaded, total, strings.Join(names, ", ")),
	}
}

// UploadText ingests the text of the form. Unparseable metadata or rules are
// logged and replaced by empty values instead of aborting.
func (e *Engine) UploadText(ctx context.Context) (*store.Document, error) {
	ctx, _ = loggy.EnsureRequestID(ctx)
	id, target, err := e.beginUpload(ctx, func(f UploadForm) *rejection {
		if strings.TrimSpace(f.Text) == "" {
			return emptyForm("Please enter text to ingest.")
		}
		return nil
	}, "Ingesting", func(UploadForm) string {
		return "Ingesting text..."
	})
	if err != nil {
		return nil, err
	}

	metadata, rules, err := parseTextOptions(target.form.Metadata, target.form.Rules)
	if err != nil {
		e.logger.Warn("Invalid metadata or rules, ingesting without them", "error", err)
		metadata, rules = map[string]any{}, []any{}
	}

	filename := target.form.Filename
	if filename == "" && e.opts.FilenameGenerator != nil {
		filename = e.opts.FilenameGenerator()
	}

	req := store.TextIngestRequest{
		Content:    target.form.Text,
		Filename:   filename,
		Metadata:   metadata,
		Rules:      rules,
		UseColpali: target.form.UseColpali,
		FolderName: target.folder,
	}

	e.logger.WithContext(ctx).Info("Ingesting text", "filename", filename, "length", len(req.Content), "folder", target.folder)
	doc, err := e.store.UploadText(ctx, req)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Text ingest failed")
		e.failUpload(id, err)
		return nil, err
	}

	name := filename
	if name == "" {
		name = doc.DisplayName()
	}
	e.hooks.documentUploaded(name, int64(len(req.Content)))
	e.finishUpload(ctx, id, target, Notification{
		Level:   LevelSuccess,
		Title:   "Ingest complete",
		Message: fmt.Sprintf("Ingested %s.", name),
	})
	return doc, nil
}

func parseTextOptions(metadataText, rulesText string) (map[string]any, []any, error) {
	metadata := map[string]any{}
	if strings.TrimSpace(metadataText) != "" {
		if err := json.Unmarshal([]byte(metadataText), &metadata); err != nil {
			return nil, nil, fmt.Errorf("parsing metadata: %w", err)
		}
	}

	rules := []any{}
	if strings.TrimSpace(rulesText) != "" {
		if err := json.Unmarshal([]byte(rulesText), &rules); err != nil {
			return nil, nil, fmt.Errorf("parsing rules: %w", err)
		}
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	if rules == nil {
		rules = []any{}
	}
	return metadata, rules, nil
}
