// Package pool provides a fixed-size worker pool with a two-phase shutdown.
//
// A ThreadPool owns N workers that share a single dispatch queue. Each
// worker repeatedly dequeues one message and either runs the job it
// carries or, on a terminate message, exits its loop. The dequeue side of
// the queue is serialized by a mutex that is held only across the dequeue
// itself, so N workers can run N jobs in parallel.
//
// # Basic Usage
//
//	p, err := pool.New(4) // 4 workers
//	if err != nil {
//	    // pool size was < 1
//	}
//	defer p.Shutdown()
//
//	p.Execute(func() {
//	    // do work
//	})
//
// # Shutdown
//
// Shutdown stops the pool in two phases: first one terminate message per
// worker is enqueued, and only after all of them are queued does the pool
// join the workers. Interleaving the two per worker could deadlock: a busy
// worker's terminate can be consumed by an idle one, leaving the joined
// worker without a terminate of its own.
//
// The queue is strictly FIFO, so every job accepted before Shutdown begins
// is delivered to some worker ahead of any terminate message. Execute
// refuses jobs once shutdown has begun.
package pool
