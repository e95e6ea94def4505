package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/docsync/internal/store"
)

func TestDetailCacheSharesConcurrentMisses(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := newDetailCache(func(ctx context.Context, id string) (*store.FolderDetail, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &store.FolderDetail{ID: id, DocumentIDs: []string{"d1", "d2"}}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := cache.resolve(context.Background(), "f1")
			assert.NoError(t, err)
			assert.Equal(t, []string{"d1", "d2"}, ids)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err := cache.resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "hits do not refetch")
}

func TestDetailCacheDoesNotStoreFailures(t *testing.T) {
	var calls int32
	cache := newDetailCache(func(ctx context.Context, id string) (*store.FolderDetail, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("unavailable")
		}
		return &store.FolderDetail{ID: id}, nil
	})

	_, err := cache.resolve(context.Background(), "f1")
	require.Error(t, err)
	assert.Zero(t, cache.len())

	ids, err := cache.resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, cache.len())
}

func TestDetailCacheInvalidation(t *testing.T) {
	cache := newDetailCache(func(ctx context.Context, id string) (*store.FolderDetail, error) {
		members := map[string][]string{
			"f1": {"d1", "d2"},
			"f2": {"d2"},
			"f3": {"d3"},
		}
		return &store.FolderDetail{ID: id, DocumentIDs: members[id]}, nil
	})

	for _, id := range []string{"f1", "f2", "f3"} {
		_, err := cache.resolve(context.Background(), id)
		require.NoError(t, err)
	}

	dropped := cache.invalidateContaining("d2")
	assert.ElementsMatch(t, []string{"f1", "f2"}, dropped)
	assert.Equal(t, 1, cache.len())

	cache.invalidate("f3")
	assert.Zero(t, cache.len())
}

func TestDetailCacheInvalidateDetachesInflightFetch(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	cache := newDetailCache(func(ctx context.Context, id string) (*store.FolderDetail, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return &store.FolderDetail{ID: id, DocumentIDs: []string{"d1"}}, nil
		}
		return &store.FolderDetail{ID: id, DocumentIDs: []string{"d1", "d2"}}, nil
	})

	first := make(chan []string, 1)
	go func() {
		ids, err := cache.resolve(context.Background(), "f1")
		assert.NoError(t, err)
		first <- ids
	}()
	<-started

	cache.invalidate("f1")
	ids, err := cache.resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids, "a fresh fetch does not join the detached one")

	close(release)
	assert.Equal(t, []string{"d1"}, <-first)

	ids, err = cache.resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDetailCacheDropsFetchOverlappingDelete(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	cache := newDetailCache(func(ctx context.Context, id string) (*store.FolderDetail, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return &store.FolderDetail{ID: id, DocumentIDs: []string{"d1", "d2"}}, nil
		}
		return &store.FolderDetail{ID: id, DocumentIDs: []string{"d2"}}, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := cache.resolve(context.Background(), "f1")
		assert.NoError(t, err)
	}()
	<-started

	cache.invalidateContaining("d1")
	close(release)
	<-done
	assert.Zero(t, cache.len(), "a listing fetched before the delete is not stored")

	ids, err := cache.resolve(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
}

func TestChangedFolders(t *testing.T) {
	one, two := 1, 2
	prev := []store.FolderSummary{
		{ID: "f1", DocCount: &one},
		{ID: "f2", DocCount: &one},
		{ID: "f3"},
		{ID: "gone"},
	}
	next := []store.FolderSummary{
		{ID: "f1", DocCount: &one},
		{ID: "f2", DocCount: &two},
		{ID: "f3", DocCount: &two},
	}

	assert.ElementsMatch(t, []string{"f2", "gone"}, changedFolders(prev, next))
	assert.Nil(t, changedFolders(nil, next))
}
