package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/docsync/internal/store"
)

func fastPoll(o *Options) {
	o.PollInterval = 10 * time.Millisecond
}

func TestPollerMergesAndStopsWhenIdle(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports")
	processing := doc("d1", store.StatusProcessing)
	processing.Metadata = map[string]any{"owner": "ana"}
	fs.addDocument(processing)
	fs.addDocument(doc("d2", store.StatusCompleted))
	fs.statuses["d1"] = store.DocumentStatus{DocumentID: "d1", Status: store.StatusCompleted, UpdatedAt: "2024-05-01T10:00:00Z"}

	e, _ := newTestEngine(t, fs, fastPoll)
	activate(t, e, scopePtr(AllScope()))
	before := e.Documents()

	assert.Eventually(t, func() bool {
		return e.ProcessingCount() == 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return !e.Snapshot().Polling
	}, 2*time.Second, 5*time.Millisecond, "poller tears down once nothing is processing")

	after := e.Documents()
	require.Len(t, after, 2)
	assert.Equal(t, store.StatusCompleted, after[0].Status())
	assert.Equal(t, "2024-05-01T10:00:00Z", after[0].UpdatedAt())
	assert.Equal(t, before[0].Metadata, after[0].Metadata, "unrelated fields are preserved")
	assert.Equal(t, before[1], after[1], "completed document untouched")
	assert.Equal(t, 1, fs.count("ListDocuments"), "polling never refetches the list")
}

func TestPollerIsolatesFailures(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports")
	fs.addDocument(doc("d1", store.StatusProcessing))
	fs.addDocument(doc("d2", store.StatusProcessing))
	// d2 has no status entry, so its checks fail
	fs.statuses["d1"] = store.DocumentStatus{DocumentID: "d1", Status: store.StatusFailed}

	e, _ := newTestEngine(t, fs, fastPoll)
	activate(t, e, scopePtr(AllScope()))

	assert.Eventually(t, func() bool {
		docs := e.Documents()
		return len(docs) == 2 && docs[0].Status() == store.StatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, store.StatusProcessing, e.Documents()[1].Status())
	assert.True(t, e.Snapshot().Polling, "still polling the remaining document")

	e.Deactivate()
	assert.False(t, e.Snapshot().Polling, "deactivation stops the poller")
}

func TestPollerRestartsWhenProcessingReturns(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports")
	fs.addDocument(doc("d1", store.StatusCompleted))

	e, _ := newTestEngine(t, fs, fastPoll)
	activate(t, e, scopePtr(AllScope()))
	assert.False(t, e.Snapshot().Polling, "idle without processing documents")

	fs.addDocument(doc("d2", store.StatusProcessing))
	require.NoError(t, e.RefreshFolders(t.Context()))
	assert.True(t, e.Snapshot().Polling)

	fs.mu.Lock()
	fs.statuses["d2"] = store.DocumentStatus{DocumentID: "d2", Status: store.StatusCompleted}
	fs.mu.Unlock()

	assert.Eventually(t, func() bool {
		return !e.Snapshot().Polling
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConcurrentReconcileKeepsPollerForProcessingDocuments(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports")
	fs.addDocument(doc("d1", store.StatusProcessing))

	e, _ := newTestEngine(t, fs)
	activate(t, e, scopePtr(AllScope()))
	require.True(t, e.Snapshot().Polling)

	processing := []store.Document{doc("d1", store.StatusProcessing)}
	for i := 0; i < 200; i++ {
		e.mu.Lock()
		e.replaceDocumentsLocked(nil)
		e.mu.Unlock()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.reconcilePoller()
		}()
		go func() {
			defer wg.Done()
			e.mu.Lock()
			e.replaceDocumentsLocked(processing)
			e.mu.Unlock()
			e.reconcilePoller()
		}()
		wg.Wait()

		require.True(t, e.poller.running(), "iteration %d left processing documents without a poller", i)
	}
}

func TestMergeStatusesNoOpForUnchangedStatus(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports")
	d := doc("d1", store.StatusProcessing)
	d.SystemMetadata[store.KeyUpdatedAt] = "t1"
	fs.addDocument(d)

	e, _ := newTestEngine(t, fs)
	activate(t, e, scopePtr(AllScope()))
	before := e.Documents()

	changed := e.mergeStatuses(map[string]store.DocumentStatus{
		"d1": {DocumentID: "d1", Status: store.StatusProcessing, UpdatedAt: "t2"},
	})
	assert.False(t, changed)
	assert.Equal(t, before, e.Documents())
}

func TestMergeStatusesReplacesOnlyStatusFields(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports")
	d := doc("d1", store.StatusProcessing)
	d.SystemMetadata["page_count"] = 12
	d.Metadata = map[string]any{"team": "finance"}
	fs.addDocument(d)

	e, _ := newTestEngine(t, fs)
	activate(t, e, scopePtr(AllScope()))
	snapshot := e.Snapshot()

	changed := e.mergeStatuses(map[string]store.DocumentStatus{
		"d1":      {DocumentID: "d1", Status: store.StatusCompleted, UpdatedAt: "t9"},
		"missing": {DocumentID: "missing", Status: store.StatusCompleted},
	})
	require.True(t, changed)

	merged := e.Documents()[0]
	assert.Equal(t, store.StatusCompleted, merged.Status())
	assert.Equal(t, "t9", merged.UpdatedAt())
	assert.Equal(t, 12, merged.SystemMetadata["page_count"])
	assert.Equal(t, map[string]any{"team": "finance"}, merged.Metadata)
	assert.Equal(t, "d1.pdf", merged.Filename)

	assert.Equal(t, store.StatusProcessing, snapshot.Documents[0].Status(), "earlier snapshots are not mutated")
}
