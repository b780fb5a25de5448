// Package offload implements the fire-and-forget worker pool used to tear
// down large sorted-set values off the request path, adapted from the
// teacher's standalone connection-handling pool (ThreadPool/main.go) into
// a submit-only job queue.
package offload

import "log"

// PoolSize is the fixed number of worker goroutines.
const PoolSize = 4

// LargeContainerSize is the member-count threshold above which a deleted
// sorted set's teardown is offloaded instead of run inline.
const LargeContainerSize = 1000

// Executor runs submitted work on a small fixed pool of goroutines.
// Submissions are fire-and-forget: callers never learn when (or whether,
// during shutdown) a job ran.
type Executor struct {
	jobs chan func()
	log  *log.Logger
}

// New starts the pool.
func New(logger *log.Logger) *Executor {
	e := &Executor{
		jobs: make(chan func(), 256),
		log:  logger,
	}
	for i := 0; i < PoolSize; i++ {
		go e.worker(i)
	}
	return e
}

func (e *Executor) worker(id int) {
	for job := range e.jobs {
		func() {
			defer func() {
				if r := recover(); r != nil && e.log != nil {
					e.log.Printf("offload worker %d: job panicked: %v", id, r)
				}
			}()
			job()
		}()
	}
}

// Submit enqueues job to run on some worker goroutine. It never blocks the
// caller past filling the queue's buffer.
func (e *Executor) Submit(job func()) {
	e.jobs <- job
}

// Shutdown closes the job queue; workers drain whatever was already
// submitted and then exit. This does not wait for in-flight jobs.
func (e *Executor) Shutdown() {
	close(e.jobs)
}
