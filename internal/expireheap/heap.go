// Package expireheap implements the expiration min-heap: entries ordered
// by deadline, with backlinks written into each entry so the owning
// keyspace record always knows its current heap slot.
package expireheap

import (
	"container/heap"
	"time"
)

// Entry is the subset of internal/hashtable.Entry this package needs: a
// place to stash (and later clear) the slot index the heap assigns it.
type Entry interface {
	GetHeapIdx() int
	SetHeapIdx(idx int)
}

// item pairs a deadline with the entry it belongs to. Deadlines are
// time.Time, not epoch milliseconds, so ordering and remaining-time
// calculations ride Go's monotonic clock reading instead of wall-clock
// time, which a backward NTP correction can otherwise jump.
type item struct {
	deadline time.Time
	entry    Entry
}

// innerHeap is the container/heap.Interface implementation, mirroring the
// teacher's zHeap wrapper (miniredis.go) but keyed by deadline instead of
// sorted-set score, and maintaining the entry backlink on every move.
type innerHeap []*item

func (h innerHeap) Len() int { return len(h) }
func (h innerHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}
func (h innerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].entry.SetHeapIdx(i)
	h[j].entry.SetHeapIdx(j)
}
func (h *innerHeap) Push(x any) {
	it := x.(*item)
	it.entry.SetHeapIdx(len(*h))
	*h = append(*h, it)
}
func (h *innerHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	it.entry.SetHeapIdx(-1)
	return it
}

// Heap is the expiration min-heap.
type Heap struct {
	h innerHeap
}

// New returns an empty heap.
func New() *Heap { return &Heap{} }

// Len reports the number of scheduled deadlines.
func (hp *Heap) Len() int { return hp.h.Len() }

// Upsert schedules entry to expire at deadline, updating its existing
// slot if it already has one, or pushing a new item otherwise.
func (hp *Heap) Upsert(entry Entry, deadline time.Time) {
	if idx := entry.GetHeapIdx(); idx >= 0 {
		hp.h[idx].deadline = deadline
		heap.Fix(&hp.h, idx)
		return
	}
	heap.Push(&hp.h, &item{deadline: deadline, entry: entry})
}

// Delete removes entry's current heap slot, if it has one. No-op
// otherwise.
func (hp *Heap) Delete(entry Entry) {
	idx := entry.GetHeapIdx()
	if idx < 0 {
		return
	}
	heap.Remove(&hp.h, idx)
}

// PeekDeadline returns the smallest scheduled deadline and true, or the
// zero time and false if the heap is empty.
func (hp *Heap) PeekDeadline() (time.Time, bool) {
	if hp.h.Len() == 0 {
		return time.Time{}, false
	}
	return hp.h[0].deadline, true
}

// DeadlineOf returns entry's own scheduled deadline and true, or the zero
// time and false if entry has no TTL scheduled.
func (hp *Heap) DeadlineOf(entry Entry) (time.Time, bool) {
	idx := entry.GetHeapIdx()
	if idx < 0 {
		return time.Time{}, false
	}
	return hp.h[idx].deadline, true
}

// PeekEntry returns the entry with the smallest deadline.
func (hp *Heap) PeekEntry() Entry {
	return hp.h[0].entry
}

// PopFront removes and returns the entry with the smallest deadline.
func (hp *Heap) PopFront() Entry {
	it := heap.Pop(&hp.h).(*item)
	return it.entry
}
