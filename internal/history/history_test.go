package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

func named(name string) *document.Document {
	doc := document.Defaults()
	doc.Settings.SiteName = name
	return doc
}

func TestUndoRedoOnEmptyBuffersAreNoOps(t *testing.T) {
	m := New()
	m.Init(named("v0"))

	_, ok := m.Undo()
	assert.False(t, ok)
	_, ok = m.Redo()
	assert.False(t, ok)
	assert.Equal(t, "v0", m.Current().Settings.SiteName)
}

func TestRecordUndoRedo(t *testing.T) {
	m := New()
	m.Init(named("v0"))
	m.Record(named("v1"), Meta{})
	m.Record(named("v2"), Meta{})

	prev, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, "v1", prev.Settings.SiteName)
	assert.True(t, m.CanRedo())

	prev, ok = m.Undo()
	require.True(t, ok)
	assert.Equal(t, "v0", prev.Settings.SiteName)
	assert.False(t, m.CanUndo())

	next, ok := m.Redo()
	require.True(t, ok)
	assert.Equal(t, "v1", next.Settings.SiteName)

	m.Record(named("v1b"), Meta{})
	assert.False(t, m.CanRedo(), "recording clears the redo stack")
	past, future := m.Len()
	assert.Equal(t, 2, past)
	assert.Equal(t, 0, future)
}

func TestHistoryBoundEvictsOldest(t *testing.T) {
	const bound = 3
	m := New(WithMaxSize(bound))
	m.Init(named("v0"))
	for i := 1; i <= bound+1; i++ {
		m.Record(named(fmt.Sprintf("v%d", i)), Meta{})
	}

	assert.True(t, m.CanUndo())
	var last *document.Document
	for i := 0; i < bound; i++ {
		doc, ok := m.Undo()
		require.True(t, ok)
		last = doc
	}
	assert.Equal(t, "v1", last.Settings.SiteName, "v0 was evicted")
	assert.False(t, m.CanUndo())
}

func TestCoalescingWithinWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := New(WithClock(clock))
	m.Init(named("before"))

	m.Record(named("anchor"), Meta{})
	clock.Advance(time.Second)

	m.Record(named("typing-1"), Meta{CoalesceKey: "UPDATE_CONTENT:hero-1", Window: 450 * time.Millisecond})
	clock.Advance(200 * time.Millisecond)
	m.Record(named("typing-2"), Meta{CoalesceKey: "UPDATE_CONTENT:hero-1", Window: 450 * time.Millisecond})

	past, _ := m.Len()
	assert.Equal(t, 2, past, "second edit merged into the first")

	doc, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, "anchor", doc.Settings.SiteName, "undo reverts to the state before the first coalesced edit")
}

func TestCoalescingWindowSlidesAndExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := New(WithClock(clock), WithWindow(400*time.Millisecond))
	m.Init(named("v0"))
	m.Record(named("v1"), Meta{})

	key := Meta{CoalesceKey: "UPDATE_SPACING:hero-1"}
	m.Record(named("drag-1"), key)
	clock.Advance(300 * time.Millisecond)
	m.Record(named("drag-2"), key)
	clock.Advance(300 * time.Millisecond)
	m.Record(named("drag-3"), key)
	past, _ := m.Len()
	assert.Equal(t, 2, past, "each edit refreshes the window")

	clock.Advance(time.Second)
	m.Record(named("drag-4"), key)
	past, _ = m.Len()
	assert.Equal(t, 3, past, "an expired window starts a new step")
}

func TestDifferentKeysAndUndoBreakCoalescing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := New(WithClock(clock))
	m.Init(named("v0"))
	m.Record(named("v1"), Meta{})

	m.Record(named("a"), Meta{CoalesceKey: "UPDATE_CONTENT:hero-1"})
	m.Record(named("b"), Meta{CoalesceKey: "UPDATE_CONTENT:faq-1"})
	past, _ := m.Len()
	assert.Equal(t, 3, past)

	_, ok := m.Undo()
	require.True(t, ok)
	m.Record(named("c"), Meta{CoalesceKey: "UPDATE_CONTENT:hero-1"})
	m.Record(named("d"), Meta{CoalesceKey: "UPDATE_CONTENT:hero-1"})
	past, _ = m.Len()
	assert.Equal(t, 3, past, "first record after undo pushes, the next one coalesces")
}

func TestCoalescedEditsUndoToInitialState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := New(WithClock(clock))
	m.Init(named("v0"))

	m.Record(named("a"), Meta{CoalesceKey: "SET_COLORS:global"})
	m.Record(named("b"), Meta{CoalesceKey: "SET_COLORS:global"})

	doc, ok := m.Undo()
	require.True(t, ok)
	assert.Equal(t, "v0", doc.Settings.SiteName)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	m := New()
	live := named("v0")
	live.Layout.Sections = []document.Section{{ID: "hero-1", Type: "hero", Variant: "default", Enabled: true}}
	live.Layout.Order = []string{"hero-1"}
	live.Content = document.Content{"hero-1": {"headline": "original"}}
	m.Init(live)

	live.Content["hero-1"]["headline"] = "mutated"
	live.Layout.Sections[0].Variant = "split"

	current := m.Current()
	assert.Equal(t, "original", current.Content["hero-1"]["headline"])
	assert.Equal(t, "default", current.Layout.Sections[0].Variant)

	current.Content["hero-1"]["headline"] = "also mutated"
	assert.Equal(t, "original", m.Current().Content["hero-1"]["headline"])
}

func TestClearKeepsPresent(t *testing.T) {
	m := New()
	m.Init(named("v0"))
	m.Record(named("v1"), Meta{})
	m.Clear()

	assert.False(t, m.CanUndo())
	assert.Equal(t, "v1", m.Current().Settings.SiteName)
}
