package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tildaslashalef/docsync/internal/store"
)

func TestSelectionToggle(t *testing.T) {
	var s Selection

	assert.True(t, s.Toggle("a", true))
	assert.False(t, s.Toggle("a", true), "adding twice is a no-op")
	assert.True(t, s.Toggle("b", true))
	assert.False(t, s.Toggle("c", false), "removing an absent id is a no-op")
	assert.Equal(t, []string{"a", "b"}, s.IDs())

	assert.True(t, s.Toggle("a", false))
	assert.Equal(t, []string{"b"}, s.IDs())
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has("a"))
}

func TestSelectionTriState(t *testing.T) {
	tests := []struct {
		name     string
		selected []string
		total    int
		expected CheckState
	}{
		{"none selected", nil, 3, Unchecked},
		{"some selected", []string{"a"}, 3, Indeterminate},
		{"all but one", []string{"a", "b"}, 3, Indeterminate},
		{"all selected", []string{"a", "b", "c"}, 3, Checked},
		{"empty list", nil, 0, Unchecked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Selection
			for _, id := range tt.selected {
				s.Toggle(id, true)
			}
			assert.Equal(t, tt.expected, s.State(tt.total))
		})
	}
}

func TestSelectionRetain(t *testing.T) {
	var s Selection
	s.Toggle("a", true)
	s.Toggle("b", true)
	s.Toggle("c", true)

	changed := s.Retain(map[string]struct{}{"a": {}, "c": {}})
	assert.True(t, changed)
	assert.Equal(t, []string{"a", "c"}, s.IDs())

	assert.False(t, s.Retain(map[string]struct{}{"a": {}, "c": {}}))
}

func TestEngineSelectionFollowsDocuments(t *testing.T) {
	fs := newFakeStore()
	fs.addFolder("f1", "reports", "d1")
	fs.addDocument(doc("d1", store.StatusCompleted))
	fs.addDocument(doc("d2", store.StatusCompleted))

	e, _ := newTestEngine(t, fs)
	activate(t, e, scopePtr(AllScope()))

	e.SelectAll(true)
	assert.Equal(t, Checked, e.SelectAllState())

	e.ToggleSelection("d2", false)
	assert.Equal(t, Indeterminate, e.SelectAllState())

	e.ToggleSelection("d2", true)
	// Switching to a folder without d2 prunes it from the selection
	assert.NoError(t, e.SetScope(t.Context(), FolderScope("reports")))
	assert.Equal(t, []string{"d1"}, e.SelectedIDs())
	assert.Equal(t, Checked, e.SelectAllState())

	e.SelectAll(false)
	assert.Equal(t, Unchecked, e.SelectAllState())
}
