// Package engine keeps an in-memory view of folders and documents consistent
// with the remote store while uploads, deletes and background ingestion happen.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
)

const (
	defaultPollInterval      = 5 * time.Second
	defaultPollConcurrency   = 8
	defaultDeleteConcurrency = 8
)

// Options configures an Engine
type Options struct {
	PollInterval      time.Duration
	PollConcurrency   int
	DeleteConcurrency int
	UseColpali        bool // Default processing-mode flag of a fresh upload form
	Notifier          Notifier
	Hooks             Hooks
	Logger            *loggy.Logger
	// FilenameGenerator names text ingests submitted without a filename
	FilenameGenerator func() string
}

// foldersUpdatedFunc is called after every successful folder refresh
type foldersUpdatedFunc func(ctx context.Context, folders []store.FolderSummary) error

// Engine is the synchronization core. All methods are safe for concurrent use;
// network calls run without holding the state lock.
type Engine struct {
	store    store.Store
	notifier Notifier
	hooks    Hooks
	logger   *loggy.Logger
	opts     Options

	cache  *detailCache
	poller *poller

	mu     sync.Mutex
	active bool
	ctx    context.Context
	cancel context.CancelFunc

	scope                 Scope
	initialScopeRequested bool
	firstCascadePending   bool
	pendingScopeFetch     bool

	folders        []store.FolderSummary
	foldersLoaded  bool
	foldersLoading bool
	folderGen      uint64

	documents        []store.Document
	documentsLoading bool
	docGen           uint64

	selection    Selection
	detail       *store.Document
	stagedDelete string
	stagedBatch  []string
	form         UploadForm

	foldersUpdated []foldersUpdatedFunc

	subsMu sync.Mutex
	subs   map[chan struct{}]struct{}
}

// New creates an engine on top of a store
func New(s store.Store, opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.PollConcurrency <= 0 {
		opts.PollConcurrency = defaultPollConcurrency
	}
	if opts.DeleteConcurrency <= 0 {
		opts.DeleteConcurrency = defaultDeleteConcurrency
	}

	e := &Engine{
		store:               s,
		notifier:            opts.Notifier,
		hooks:               opts.Hooks,
		logger:              opts.Logger,
		opts:                opts,
		firstCascadePending: true,
		subs:                make(map[chan struct{}]struct{}),
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.logger == nil {
		e.logger = loggy.GetGlobalLogger()
	}

	e.cache = newDetailCache(s.GetFolder)
	e.poller = newPoller(e, opts.PollInterval, opts.PollConcurrency)
	e.form = e.blankForm()

	// Documents follow folders
	e.onFoldersUpdated(e.documentsOnFoldersUpdated)

	return e
}

// Activate starts the engine and performs the initial folder refresh, which
// cascades to documents. initialScope, when non-nil, is the scope requested by
// the caller for the first display.
func (e *Engine) Activate(ctx context.Context, initialScope *Scope) error {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return nil
	}
	e.active = true
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))
	if initialScope != nil {
		e.scope = *initialScope
		e.initialScopeRequested = true
	}
	scope := e.scope
	e.mu.Unlock()

	ctx, requestID := loggy.EnsureRequestID(ctx)
	e.logger.Info("Engine activated", "scope", scope.String(), "request_id", requestID)
	e.publish()

	return e.RefreshFolders(ctx)
}

// Deactivate stops background polling. Responses arriving afterwards are discarded.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	e.cancel()
	// Pending fetches become stale
	e.folderGen++
	e.docGen++
	e.foldersLoading = false
	e.documentsLoading = false
	e.mu.Unlock()

	e.poller.stop()
	e.logger.Info("Engine deactivated")
	e.publish()
}

// Snapshot returns a copy of the current state
func (e *Engine) Snapshot() State {
	// The poller lock is taken before the engine lock elsewhere
	polling := e.poller.running()

	e.mu.Lock()
	defer e.mu.Unlock()

	docs := make([]store.Document, len(e.documents))
	for i, d := range e.documents {
		docs[i] = d.Clone()
	}

	var detail *store.Document
	if e.detail != nil {
		d := e.detail.Clone()
		detail = &d
	}

	form := e.form
	form.Files = append([]store.File(nil), e.form.Files...)

	return State{
		Active:             e.active,
		Scope:              e.scope,
		Folders:            append([]store.FolderSummary(nil), e.folders...),
		FoldersLoading:     e.foldersLoading,
		Documents:          docs,
		DocumentsLoading:   e.documentsLoading,
		Selected:           e.selection.IDs(),
		SelectAll:          e.selection.State(len(e.documents)),
		Detail:             detail,
		PendingDelete:      e.stagedDelete,
		PendingBatchDelete: len(e.stagedBatch),
		Polling:            polling,
		Form:               form,
	}
}

// Subscribe returns a channel signalled after every state change, and a function
// to stop the subscription. Signals are coalesced; slow readers never block the engine.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	e.subsMu.Lock()
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.subs, ch)
			e.subsMu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) publish() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	for ch := range e.subs {
		// Non-blocking send
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// onFoldersUpdated registers a listener for successful folder refreshes
func (e *Engine) onFoldersUpdated(fn foldersUpdatedFunc) {
	e.foldersUpdated = append(e.foldersUpdated, fn)
}

// SetScope changes the selection scope and loads its documents once folders are available
func (e *Engine) SetScope(ctx context.Context, scope Scope) error {
	ctx, _ = loggy.EnsureRequestID(ctx)

	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	e.scope = scope
	ready := e.foldersLoaded && !e.foldersLoading
	if !ready {
		e.pendingScopeFetch = true
	}
	e.mu.Unlock()

	e.publish()
	e.hooks.folderSelected(scope)

	if !ready {
		e.logger.Debug("Deferring document fetch until folders load", "scope", scope.String())
		return nil
	}

	return e.refreshDocuments(ctx, scope)
}

// Scope returns the current selection scope
func (e *Engine) Scope() Scope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scope
}

// ToggleSelection checks or unchecks a document
func (e *Engine) ToggleSelection(id string, checked bool) {
	e.mu.Lock()
	changed := e.selection.Toggle(id, checked)
	e.mu.Unlock()

	if changed {
		e.publish()
	}
}

// SelectAll checks every loaded document, or clears the selection
func (e *Engine) SelectAll(checked bool) {
	e.mu.Lock()
	e.selection.Clear()
	if checked {
		for _, d := range e.documents {
			e.selection.Toggle(d.ExternalID, true)
		}
	}
	e.mu.Unlock()

	e.publish()
}

// SelectAllState returns the tri-state value of the "select all" control
func (e *Engine) SelectAllState() CheckState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.State(len(e.documents))
}

// SelectedIDs returns the checked document ids
func (e *Engine) SelectedIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.IDs()
}

// ProcessingCount returns how many loaded documents are still processing
func (e *Engine) ProcessingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.processingIDsLocked())
}

// OpenDocument fetches a document and shows it in the detail view
func (e *Engine) OpenDocument(ctx context.Context, id string) (*store.Document, error) {
	if err := e.ensureActive(); err != nil {
		return nil, err
	}

	ctx, _ = loggy.EnsureRequestID(ctx)
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to open document", "document_id", id)
		e.notifyError("Failed to open document", err)
		return nil, err
	}

	normalized := normalizeDocument(*doc)

	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return nil, ErrNotActive
	}
	e.detail = &normalized
	e.mu.Unlock()

	e.publish()
	e.hooks.documentOpened(normalized.DisplayName())

	out := normalized.Clone()
	return &out, nil
}

// CloseDetail clears the detail view
func (e *Engine) CloseDetail() {
	e.mu.Lock()
	changed := e.detail != nil
	e.detail = nil
	e.mu.Unlock()

	if changed {
		e.publish()
	}
}

// DownloadURL resolves a download location for a document
func (e *Engine) DownloadURL(ctx context.Context, id string) (string, error) {
	ctx, _ = loggy.EnsureRequestID(ctx)
	u, err := e.store.DownloadURL(ctx, id)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to resolve download url", "document_id", id)
		e.notifyError("Failed to get download link", err)
		return "", err
	}
	return u, nil
}

// RequestRefresh reloads folders and, through the cascade, documents
func (e *Engine) RequestRefresh(ctx context.Context) error {
	e.hooks.refreshRequested()
	return e.RefreshFolders(ctx)
}

// SetUploadForm replaces the upload form values
func (e *Engine) SetUploadForm(form UploadForm) {
	e.mu.Lock()
	e.form = form
	e.form.Files = append([]store.File(nil), form.Files...)
	e.mu.Unlock()

	e.publish()
}

// Form returns the current upload form values
func (e *Engine) Form() UploadForm {
	e.mu.Lock()
	defer e.mu.Unlock()

	form := e.form
	form.Files = append([]store.File(nil), e.form.Files...)
	return form
}

func (e *Engine) blankForm() UploadForm {
	return UploadForm{
		Metadata:   "{}",
		Rules:      "[]",
		UseColpali: e.opts.UseColpali,
	}
}

func (e *Engine) ensureActive() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return ErrNotActive
	}
	return nil
}

// documentNameLocked returns the display name of a loaded document, or its id
func (e *Engine) documentNameLocked(id string) string {
	for i := range e.documents {
		if e.documents[i].ExternalID == id {
			return e.documents[i].DisplayName()
		}
	}
	if e.detail != nil && e.detail.ExternalID == id {
		return e.detail.DisplayName()
	}
	return id
}

// folderIDLocked returns the id of the folder with the given name
func (e *Engine) folderIDLocked(name string) (string, bool) {
	for _, f := range e.folders {
		if f.Name == name {
			return f.ID, true
		}
	}
	return "", false
}
