// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the default sustained ceiling on
	// outbound data-provider calls. Public chain APIs commonly throttle
	// around this level.
	DefaultRequestsPerSecond = 3

	// defaultQueueSize is the buffer of the pending-request queue. The
	// queue preserves FIFO order of issuance; the buffer only bounds how
	// many callers can enqueue before Dispatch blocks on admission.
	defaultQueueSize = 64
)

// ErrDispatcherStopped is returned for requests still pending when the
// dispatcher shuts down, and for any Dispatch call made afterwards.
var ErrDispatcherStopped = errors.New("request dispatcher has stopped")

// request is a queued unit of work along with the channel its result is
// delivered on.
type request struct {
	ctx  context.Context
	call func(context.Context) error
	done chan error
}

// Dispatcher serializes calls to an external data provider behind a single
// worker so that requests dispatch in FIFO order and no faster than a fixed
// sustained rate. It performs no retries; the underlying transport result
// or error is handed back to the caller unchanged. A Dispatcher is safe for
// concurrent use by multiple callers.
type Dispatcher struct {
	limiter *rate.Limiter

	requests chan *request

	started atomic.Bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given sustained rate ceiling
// in requests per second. A non-positive rate falls back to the default.
func NewDispatcher(requestsPerSecond float64) *Dispatcher {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}

	return &Dispatcher{
		// Burst of one enforces the minimum inter-request interval
		// rather than merely the long-run average.
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		requests: make(chan *request, defaultQueueSize),
		quit:     make(chan struct{}),
	}
}

// Start launches the worker loop. Starting an already started dispatcher is
// a no-op.
func (d *Dispatcher) Start() {
	if d.started.Swap(true) {
		return
	}

	log.Debugf("Starting request dispatcher, rate=%v req/s",
		d.limiter.Limit())

	d.wg.Add(1)
	go d.worker()
}

// Stop shuts the worker down and fails any requests still queued.
func (d *Dispatcher) Stop() {
	if !d.started.Load() {
		return
	}

	close(d.quit)
	d.wg.Wait()
}

// Dispatch enqueues call and blocks until the worker has run it, returning
// the call's own result. Requests are issued strictly in enqueue order.
func (d *Dispatcher) Dispatch(ctx context.Context,
	call func(context.Context) error) error {

	req := &request{
		ctx:  ctx,
		call: call,
		done: make(chan error, 1),
	}

	select {
	case d.requests <- req:
	case <-d.quit:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-d.quit:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker drains the queue one request at a time, suspending between
// requests until the minimum interval has elapsed.
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case req := <-d.requests:
			d.process(req)

		case <-d.quit:
			// Fail whatever is still queued so no caller is left
			// waiting.
			for {
				select {
				case req := <-d.requests:
					req.done <- ErrDispatcherStopped
				default:
					return
				}
			}
		}
	}
}

// process waits out the rate floor and runs a single request. The result
// channel is buffered, so delivery never blocks even if the caller has
// already given up on its context.
func (d *Dispatcher) process(req *request) {
	if err := d.limiter.Wait(req.ctx); err != nil {
		req.done <- err
		return
	}

	req.done <- req.call(req.ctx)
}
