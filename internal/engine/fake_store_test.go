package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
)

// fakeStore is an in-memory store that counts calls per operation
type fakeStore struct {
	mu sync.Mutex

	folders   []store.FolderSummary
	details   map[string][]string
	documents map[string]store.Document
	statuses  map[string]store.DocumentStatus

	foldersErr   error
	documentsErr error
	batchErr     error
	uploadErr    error
	deleteErrs   map[string]error
	batchResult  *store.BatchUploadResult

	// listDocumentsGate runs before ListDocuments answers, outside the lock
	listDocumentsGate func(call int)
	// listFoldersGate runs before ListFolderSummaries answers, outside the lock
	listFoldersGate func(call int)
	// getFolderGate runs after GetFolder has read the members, outside the lock
	getFolderGate func(call int)

	calls        map[string]int
	uploadOpts   store.UploadOptions
	uploadFiles  []store.File
	textRequest  store.TextIngestRequest
	deletedOrder []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		details:    map[string][]string{},
		documents:  map[string]store.Document{},
		statuses:   map[string]store.DocumentStatus{},
		deleteErrs: map[string]error{},
		calls:      map[string]int{},
	}
}

func (f *fakeStore) addFolder(id, name string, docIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := len(docIDs)
	f.folders = append(f.folders, store.FolderSummary{ID: id, Name: name, DocCount: &count})
	f.details[id] = docIDs
}

func (f *fakeStore) addDocument(doc store.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[doc.ExternalID] = doc
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) record(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.calls[op]
}

func (f *fakeStore) ListDocuments(ctx context.Context) ([]store.Document, error) {
	call := f.record("ListDocuments")
	if f.listDocumentsGate != nil {
		f.listDocumentsGate(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.documentsErr != nil {
		return nil, f.documentsErr
	}

	ids := make([]string, 0, len(f.documents))
	for id := range f.documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]store.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, f.documents[id].Clone())
	}
	return docs, nil
}

func (f *fakeStore) ListFolderSummaries(ctx context.Context) ([]store.FolderSummary, error) {
	call := f.record("ListFolderSummaries")
	if f.listFoldersGate != nil {
		f.listFoldersGate(call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.foldersErr != nil {
		return nil, f.foldersErr
	}
	return append([]store.FolderSummary(nil), f.folders...), nil
}

func (f *fakeStore) GetFolder(ctx context.Context, id string) (*store.FolderDetail, error) {
	call := f.record("GetFolder")

	f.mu.Lock()
	ids, ok := f.details[id]
	ids = append([]string(nil), ids...)
	f.mu.Unlock()

	if f.getFolderGate != nil {
		f.getFolderGate(call)
	}
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, store.ErrNotFound)
	}
	return &store.FolderDetail{ID: id, DocumentIDs: ids}, nil
}

func (f *fakeStore) BatchGetDocuments(ctx context.Context, ids []string) ([]store.Document, error) {
	f.record("BatchGetDocuments")

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}

	var docs []store.Document
	for _, id := range ids {
		if d, ok := f.documents[id]; ok {
			docs = append(docs, d.Clone())
		}
	}
	return docs, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	f.record("GetDocument")

	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	out := d.Clone()
	return &out, nil
}

func (f *fakeStore) DeleteDocument(ctx context.Context, id string) error {
	f.record("DeleteDocument")

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErrs[id]; err != nil {
		return err
	}
	delete(f.documents, id)
	for folderID, ids := range f.details {
		kept := ids[:0:0]
		for _, member := range ids {
			if member != id {
				kept = append(kept, member)
			}
		}
		f.details[folderID] = kept
	}
	f.deletedOrder = append(f.deletedOrder, id)
	return nil
}

func (f *fakeStore) GetDocumentStatus(ctx context.Context, id string) (*store.DocumentStatus, error) {
	f.record("GetDocumentStatus")

	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[id]
	if !ok {
		return nil, fmt.Errorf("status of %s unavailable", id)
	}
	return &s, nil
}

func (f *fakeStore) UploadFile(ctx context.Context, file store.File, opts store.UploadOptions) (*store.Document, error) {
	f.record("UploadFile")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadOpts = opts
	f.uploadFiles = []store.File{file}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &store.Document{ExternalID: "new-" + file.Name, Filename: file.Name}, nil
}

func (f *fakeStore) UploadFiles(ctx context.Context, files []store.File, opts store.UploadOptions) (*store.BatchUploadResult, error) {
	f.record("UploadFiles")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadOpts = opts
	f.uploadFiles = append([]store.File(nil), files...)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.batchResult != nil {
		return f.batchResult, nil
	}
	result := &store.BatchUploadResult{}
	for _, file := range files {
		result.Documents = append(result.Documents, store.Document{ExternalID: "new-" + file.Name, Filename: file.Name})
	}
	return result, nil
}

func (f *fakeStore) UploadText(ctx context.Context, req store.TextIngestRequest) (*store.Document, error) {
	f.record("UploadText")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.textRequest = req
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &store.Document{ExternalID: "new-text", Filename: req.Filename}, nil
}

func (f *fakeStore) DownloadURL(ctx context.Context, id string) (string, error) {
	f.record("DownloadURL")
	return "https://files.test/" + id, nil
}

// recordingNotifier keeps every notification in order
type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *recordingNotifier) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}

func (r *recordingNotifier) countLevel(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Level == level {
			n++
		}
	}
	return n
}

// newTestEngine builds an engine with a long poll interval unless overridden
func newTestEngine(t *testing.T, st store.Store, mutate ...func(*Options)) (*Engine, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	opts := Options{
		PollInterval:      time.Hour,
		PollConcurrency:   4,
		DeleteConcurrency: 4,
		UseColpali:        true,
		Notifier:          notifier,
		Logger:            loggy.NewNoopLogger(),
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	e := New(st, opts)
	t.Cleanup(e.Deactivate)
	return e, notifier
}

func activate(t *testing.T, e *Engine, scope *Scope) {
	t.Helper()
	require.NoError(t, e.Activate(context.Background(), scope))
}

func scopePtr(s Scope) *Scope {
	return &s
}

func doc(id, status string) store.Document {
	d := store.Document{ExternalID: id, Filename: id + ".pdf", SystemMetadata: map[string]any{}}
	if status != "" {
		d.SystemMetadata[store.KeyStatus] = status
	}
	return d
}

func docIDs(docs []store.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ExternalID)
	}
	return ids
}
