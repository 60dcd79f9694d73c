// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDispatcherFIFOOrder checks that requests run strictly in enqueue
// order even when issued from a single caller in sequence.
func TestDispatcherFIFOOrder(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1000)
	d.Start()
	defer d.Stop()

	ctx := context.Background()

	var (
		mu  sync.Mutex
		got []int
	)

	// Enqueue from a goroutine per request, but serialize the enqueue
	// calls themselves so issuance order is deterministic.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)

		ready := make(chan struct{})
		go func() {
			defer wg.Done()

			err := d.Dispatch(ctx, func(context.Context) error {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()

				return nil
			})
			require.NoError(t, err)

			close(ready)
		}()

		// Wait for this request to complete before issuing the next,
		// making the expected order unambiguous.
		<-ready
	}
	wg.Wait()

	require.Equal(
		t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got,
	)
}

// TestDispatcherRateFloor checks that consecutive requests are spaced by at
// least the configured minimum interval.
func TestDispatcherRateFloor(t *testing.T) {
	t.Parallel()

	// 20 req/s means at least 50ms between dispatches, so three
	// requests need at least 100ms in total after the first.
	d := NewDispatcher(20)
	d.Start()
	defer d.Stop()

	ctx := context.Background()

	// Warm up: consume the initial token.
	err := d.Dispatch(ctx, func(context.Context) error { return nil })
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 2; i++ {
		err := d.Dispatch(ctx, func(context.Context) error {
			return nil
		})
		require.NoError(t, err)
	}

	require.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

// TestDispatcherPropagatesErrors checks that a transport error reaches the
// caller unchanged and is not retried.
func TestDispatcherPropagatesErrors(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1000)
	d.Start()
	defer d.Stop()

	errBoom := errors.New("boom")

	calls := 0
	err := d.Dispatch(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	})

	require.ErrorIs(t, err, errBoom)
	require.Equal(t, 1, calls)
}

// TestDispatcherStop checks that a stopped dispatcher rejects new requests.
func TestDispatcherStop(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1000)
	d.Start()
	d.Stop()

	err := d.Dispatch(context.Background(), func(context.Context) error {
		return nil
	})
	require.ErrorIs(t, err, ErrDispatcherStopped)
}

// TestDispatcherContextCancel checks that a canceled caller context aborts
// the wait.
func TestDispatcherContextCancel(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(1000)
	d.Start()
	defer d.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
