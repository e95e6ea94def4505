package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tildaslashalef/docsync/internal/engine"
)

func TestChanNotifierParksPersistentWhenFull(t *testing.T) {
	notes := newChanNotifier(1)

	notes.Notify(engine.Notification{ID: "n1", Title: "Folders loaded"})
	notes.Notify(engine.Notification{ID: "upl-1", Title: "Uploading", Persistent: true})
	notes.Notify(engine.Notification{ID: "n2", Title: "Dropped"})
	notes.Notify(engine.Notification{ID: "upl-1", Title: "Upload complete", Level: engine.LevelSuccess})

	assert.Equal(t, "n1", notes.next().ID)

	replaced := notes.next()
	assert.Equal(t, "upl-1", replaced.ID)
	assert.Equal(t, "Upload complete", replaced.Title)
	assert.False(t, replaced.Persistent)

	assert.Empty(t, notes.ch)
	assert.Empty(t, notes.order)
}

func TestChanNotifierDeliversReplacementAfterPersistent(t *testing.T) {
	notes := newChanNotifier(1)

	notes.Notify(engine.Notification{ID: "upl-1", Title: "Uploading", Persistent: true})
	notes.Notify(engine.Notification{ID: "upl-1", Title: "Upload failed", Level: engine.LevelError})
	notes.Notify(engine.Notification{ID: "upl-2", Title: "Uploading", Persistent: true})

	first := notes.next()
	assert.Equal(t, "upl-1", first.ID)
	assert.True(t, first.Persistent)

	notes.Notify(engine.Notification{ID: "n1", Title: "Batch delete"})

	got := map[string]engine.Notification{}
	for i := 0; i < 3; i++ {
		note := notes.next()
		got[note.ID] = note
	}
	assert.Equal(t, "Upload failed", got["upl-1"].Title)
	assert.True(t, got["upl-2"].Persistent)
	assert.Contains(t, got, "n1")
	assert.Empty(t, notes.order)
}

func TestChanNotifierForgetsReplacedIDs(t *testing.T) {
	notes := newChanNotifier(1)

	notes.Notify(engine.Notification{ID: "upl-1", Persistent: true})
	notes.next()
	notes.Notify(engine.Notification{ID: "upl-1", Title: "Upload complete"})
	notes.next()

	notes.Notify(engine.Notification{ID: "n1"})
	notes.Notify(engine.Notification{ID: "upl-1", Title: "Stray"})

	assert.Equal(t, "n1", notes.next().ID)
	assert.Empty(t, notes.order, "an id already replaced is not kept again")
}
