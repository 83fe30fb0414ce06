// Package parallel provides the fixed-size worker pool shared by the CLI
// batch commands and the compositor.
package parallel

import (
	"runtime"
	"sync"
)

type (
	// WorkerFunc schedules a job on the pool.
	WorkerFunc func(func())
	// WaitFunc blocks until every scheduled job has finished. With done set
	// the pool is shut down afterwards and must not be used again.
	WaitFunc func(done bool)
	// CancelFunc stops the workers once the queue drains.
	CancelFunc func()
)

type Pool struct {
	workers sync.WaitGroup
	pending sync.WaitGroup

	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc
}

// Start launches numWorkers goroutines, GOMAXPROCS when numWorkers < 1. A
// single-worker pool runs every job inline on the caller's goroutine.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}

	if numWorkers == 1 {
		return pool
	}

	workChan := make(chan func(), numWorkers)
	for range numWorkers {
		pool.workers.Go(func() {
			for f := range workChan {
				f()
				pool.pending.Done()
			}
		})
	}

	pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	pool.Do = func(f func()) {
		pool.pending.Add(1)
		workChan <- f
	}
	pool.Wait = func(done bool) {
		pool.pending.Wait()
		if done {
			pool.Cancel()
			pool.workers.Wait()
		}
	}

	return pool
}
