package expireheap

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	name    string
	heapIdx int
}

func newFakeEntry(name string) *fakeEntry { return &fakeEntry{name: name, heapIdx: -1} }
func (f *fakeEntry) GetHeapIdx() int      { return f.heapIdx }
func (f *fakeEntry) SetHeapIdx(i int)     { f.heapIdx = i }

// base is an arbitrary fixed point; tests only care about relative
// ordering between deadlines, not real time.
var base = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func TestUpsertAndPopOrdering(t *testing.T) {
	hp := New()
	rng := rand.New(rand.NewSource(3))
	entries := make([]*fakeEntry, 30)
	for i := range entries {
		entries[i] = newFakeEntry(string(rune('a' + i)))
		hp.Upsert(entries[i], at(rng.Intn(1000)))
	}

	lastDeadline := time.Time{}
	for hp.Len() > 0 {
		d, ok := hp.PeekDeadline()
		require.True(t, ok)
		assert.True(t, !d.Before(lastDeadline))
		lastDeadline = d
		e := hp.PopFront()
		assert.Equal(t, -1, e.(*fakeEntry).heapIdx)
	}
}

func TestUpsertUpdatesExistingSlot(t *testing.T) {
	hp := New()
	a := newFakeEntry("a")
	b := newFakeEntry("b")
	hp.Upsert(a, at(100))
	hp.Upsert(b, at(50))
	assert.Equal(t, 0, b.GetHeapIdx())

	hp.Upsert(a, at(10))
	d, _ := hp.PeekDeadline()
	assert.True(t, d.Equal(at(10)))
	assert.Same(t, a, hp.PeekEntry())
}

func TestDeleteClearsHeapIdx(t *testing.T) {
	hp := New()
	a := newFakeEntry("a")
	b := newFakeEntry("b")
	c := newFakeEntry("c")
	hp.Upsert(a, at(30))
	hp.Upsert(b, at(10))
	hp.Upsert(c, at(20))

	hp.Delete(b)
	assert.Equal(t, -1, b.GetHeapIdx())
	assert.Equal(t, 2, hp.Len())

	for hp.Len() > 0 {
		idx := hp.PeekEntry()
		_ = idx
		hp.PopFront()
	}
}

func TestEveryLiveSlotPointsBackToItsEntry(t *testing.T) {
	hp := New()
	entries := make([]*fakeEntry, 10)
	for i := range entries {
		entries[i] = newFakeEntry(string(rune('a' + i)))
		hp.Upsert(entries[i], at(10-i))
	}
	for i, it := range hp.h {
		assert.Equal(t, i, it.entry.GetHeapIdx())
	}
}
