// Package store implements the keyspace and command dispatcher: the
// hash table of keys (internal/hashtable), the sorted-set values
// (internal/zset), and the TTL heap (internal/expireheap), all guarded by
// one mutex and driven by the command table in Dispatch. It is the Go
// translation of the teacher's GData and its do_* command handlers,
// turned from a process-global OnceLock<Mutex<GData>> into an explicit
// struct constructed once by cmd/kvengine and threaded through the server.
package store

import (
	"log"
	"sync"
	"time"

	"github.com/manh119/kvengine/internal/expireheap"
	"github.com/manh119/kvengine/internal/hashtable"
	"github.com/manh119/kvengine/internal/offload"
)

// Store is the engine's keyspace: every command runs under mu, so no
// command ever observes another command's half-applied mutation.
type Store struct {
	mu sync.Mutex

	keys    *hashtable.HMap
	expires *expireheap.Heap
	exec    *offload.Executor
	log     *log.Logger
}

// New builds an empty keyspace. exec handles large-ZSet teardown offload
// (internal/offload); logger may be nil.
func New(exec *offload.Executor, logger *log.Logger) *Store {
	return &Store{
		keys:    hashtable.NewHMap(),
		expires: expireheap.New(),
		exec:    exec,
		log:     logger,
	}
}

// now returns the current monotonic-backed time.Time. Deadlines and
// remaining-TTL calculations are always derived from this rather than
// from time.Now().UnixMilli(), so they ride Go's monotonic clock reading
// and can't jump when the wall clock is adjusted.
func now() time.Time {
	return time.Now()
}

// deleteLocked removes key from the keyspace and its TTL heap slot, if
// any, and offloads a large ZSet's teardown the way entry_del does in the
// original source. Callers must hold mu.
func (s *Store) deleteLocked(key string) bool {
	e, ok := s.keys.Delete(key)
	if !ok {
		return false
	}
	if e.HeapIdx >= 0 {
		s.expires.Delete(e)
	}
	if v, ok := e.Value.(*Value); ok && v.Kind == KindZSet {
		n := v.ZSet.Len()
		if n > offload.LargeContainerSize {
			if s.log != nil {
				s.log.Printf("store: offloading teardown of %d-member zset %q", n, key)
			}
			s.exec.Submit(func() { v.ZSet = nil })
		}
	}
	return true
}

// ExpireTick evicts keys whose TTL deadline has passed, stopping after
// maxWorks evictions even if more are due — the bound the timer tick
// (component J) uses so one wakeup can never be monopolized by a burst of
// simultaneous expirations. Returns the number of keys evicted.
func (s *Store) ExpireTick(maxWorks int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now()
	evicted := 0
	for evicted < maxWorks {
		deadline, ok := s.expires.PeekDeadline()
		if !ok || deadline.After(cutoff) {
			break
		}
		e := s.expires.PopFront().(*hashtable.Entry)
		s.deleteLocked(e.Key)
		evicted++
	}
	return evicted
}

// NextDeadline reports the TTL heap's earliest deadline, for the event
// loop to compute its poll timeout. ok is false if no key has a TTL.
func (s *Store) NextDeadline() (deadline time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires.PeekDeadline()
}

// NextDeadlineMs is NextDeadline expressed in Unix milliseconds, the unit
// internal/server's event loop mixes its idle-list deadlines in.
func (s *Store) NextDeadlineMs() (int64, bool) {
	deadline, ok := s.NextDeadline()
	if !ok {
		return 0, false
	}
	return deadline.UnixMilli(), true
}

// Len reports the number of live keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.Size()
}
