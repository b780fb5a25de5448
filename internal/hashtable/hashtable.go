// Package hashtable implements the keyspace: a chained hash table with
// incremental (progressive) rehashing, so no single operation ever pays
// for a whole-table resize.
package hashtable

import "github.com/twmb/murmur3"

// MaxLoadFactor is the newer-table load factor that triggers a resize.
const MaxLoadFactor = 8

// RehashingWork is the number of bucket-entry moves performed per Insert
// call while a migration is in progress.
const RehashingWork = 128

// Entry is a keyspace record. It is intentionally thin: HCode and the
// intrusive bucket link are owned by this package; Key, Value and HeapIdx
// are the fields callers (internal/store) read and write directly. Value
// is left untyped here so this package has no dependency on what kinds of
// values the keyspace stores.
type Entry struct {
	Key     string
	HCode   uint64
	Value   any
	HeapIdx int // -1 when the entry has no TTL

	next *Entry // bucket chain link
}

// NewEntry builds an Entry with its hashcode computed and HeapIdx
// initialized to "not in the heap".
func NewEntry(key string, value any) *Entry {
	return &Entry{
		Key:     key,
		HCode:   HashKey(key),
		Value:   value,
		HeapIdx: -1,
	}
}

// HashKey is the keyspace's hash function, shared by every Entry so
// lookups and inserts agree on bucket placement.
func HashKey(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}

// GetHeapIdx and SetHeapIdx satisfy internal/expireheap.Entry, letting the
// expiration heap keep its backlink directly on the keyspace record.
func (e *Entry) GetHeapIdx() int    { return e.HeapIdx }
func (e *Entry) SetHeapIdx(idx int) { e.HeapIdx = idx }

type table struct {
	buckets []*Entry
	size    int
}

func newTable(capacity int) *table {
	return &table{buckets: make([]*Entry, capacity)}
}

func (t *table) mask() uint64 { return uint64(len(t.buckets)) - 1 }

func (t *table) lookup(hcode uint64, key string) (*Entry, *Entry) {
	idx := hcode & t.mask()
	var prev *Entry
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.HCode == hcode && e.Key == key {
			return e, prev
		}
		prev = e
	}
	return nil, nil
}

func (t *table) insertFront(e *Entry) {
	idx := e.HCode & t.mask()
	e.next = t.buckets[idx]
	t.buckets[idx] = e
	t.size++
}

func (t *table) unlink(idx uint64, e, prev *Entry) {
	if prev == nil {
		t.buckets[idx] = e.next
	} else {
		prev.next = e.next
	}
	e.next = nil
	t.size--
}

// HMap is the progressively-rehashing keyspace: a "newer" table that all
// inserts land in, and an optional "older" table being drained into it.
type HMap struct {
	newer *table
	older *table

	migratePos uint64 // next older-table bucket to drain
}

// NewHMap returns an empty map; the newer table is allocated lazily on
// first insert, matching the teacher's lazy-init convention.
func NewHMap() *HMap {
	return &HMap{}
}

// Size returns the total number of live entries across both tables.
func (h *HMap) Size() int {
	n := h.newer.sizeOrZero()
	n += h.older.sizeOrZero()
	return n
}

func (t *table) sizeOrZero() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Lookup finds the entry for key, consulting newer then older.
func (h *HMap) Lookup(key string) (*Entry, bool) {
	hcode := HashKey(key)
	if h.newer != nil {
		if e, _ := h.newer.lookup(hcode, key); e != nil {
			return e, true
		}
	}
	if h.older != nil {
		if e, _ := h.older.lookup(hcode, key); e != nil {
			return e, true
		}
	}
	return nil, false
}

// Insert adds e (which must have its HCode already set, e.g. via NewEntry)
// to the newer table, then triggers a resize if the load factor demands
// it, then runs one bounded migration step.
func (h *HMap) Insert(e *Entry) {
	if h.newer == nil {
		h.newer = newTable(4)
	}
	h.newer.insertFront(e)

	if h.older == nil && h.newer.size >= len(h.newer.buckets)*MaxLoadFactor {
		h.older = h.newer
		h.newer = newTable(len(h.older.buckets) * 2)
		h.migratePos = 0
	}
	h.migrationStep()
}

// migrationStep moves up to RehashingWork entries from older into newer.
func (h *HMap) migrationStep() {
	if h.older == nil {
		return
	}
	work := RehashingWork
	for work > 0 && h.older.size > 0 {
		for h.migratePos < uint64(len(h.older.buckets)) && h.older.buckets[h.migratePos] == nil {
			h.migratePos++
		}
		if h.migratePos >= uint64(len(h.older.buckets)) {
			break
		}
		e := h.older.buckets[h.migratePos]
		h.older.unlink(h.migratePos, e, nil)
		h.newer.insertFront(e)
		work--
	}
	if h.older.size == 0 {
		h.older = nil
		h.migratePos = 0
	}
}

// Delete removes and returns the entry for key, searching newer then
// older. Reports false if key was not present.
func (h *HMap) Delete(key string) (*Entry, bool) {
	hcode := HashKey(key)
	if h.newer != nil {
		if e, prev := h.newer.lookup(hcode, key); e != nil {
			h.newer.unlink(hcode&h.newer.mask(), e, prev)
			return e, true
		}
	}
	if h.older != nil {
		if e, prev := h.older.lookup(hcode, key); e != nil {
			h.older.unlink(hcode&h.older.mask(), e, prev)
			return e, true
		}
	}
	return nil, false
}

// ForEach iterates every live entry in both tables. Order is unspecified.
func (h *HMap) ForEach(fn func(*Entry)) {
	if h.newer != nil {
		for _, head := range h.newer.buckets {
			for e := head; e != nil; e = e.next {
				fn(e)
			}
		}
	}
	if h.older != nil {
		for _, head := range h.older.buckets {
			for e := head; e != nil; e = e.next {
				fn(e)
			}
		}
	}
}

// BucketCount returns the capacity of the newer table, for tests that
// check the doubling schedule.
func (h *HMap) BucketCount() int {
	if h.newer == nil {
		return 0
	}
	return len(h.newer.buckets)
}

// Migrating reports whether a resize is currently in progress.
func (h *HMap) Migrating() bool { return h.older != nil }
