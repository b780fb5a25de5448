package offload

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitRunsJobsOnWorkers(t *testing.T) {
	e := New(nil)
	defer e.Shutdown()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := 0
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		e.Submit(func() {
			mu.Lock()
			seen++
			mu.Unlock()
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}
	assert.Equal(t, n, seen)
}

func TestPanicInJobDoesNotKillWorker(t *testing.T) {
	e := New(nil)
	defer e.Shutdown()

	e.Submit(func() { panic("boom") })

	done := make(chan struct{})
	e.Submit(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}
}
