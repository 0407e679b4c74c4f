package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/pow"
	"github.com/google/uuid"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation builds a block on top of the tip and searches for a
// nonce that solves it. A solved block is added to the chain.
func (w *Worker) runMiningOperation() {
	runID := uuid.NewString()

	w.evHandler("worker: runMiningOperation: MINING: run[%s]: started", runID)
	defer w.evHandler("worker: runMiningOperation: MINING: run[%s]: completed", runID)

	// After running a mining operation, check if a new operation should
	// be signaled again. Errors stop continuous mining.
	var again bool
	defer func() {
		if again && w.cfg.Continuous && !w.isShutdown() {
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: signal new mining operation", runID)
			w.SignalStartMining()
		}
	}()

	// If mining is signalled to be cancelled by the AcceptBlock function,
	// this G can't terminate until it is told it can.
	var wait chan struct{}
	defer func() {
		if wait != nil {
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: termination signal: waiting", runID)
			<-wait
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: termination signal: received", runID)
		}
	}()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: run[%s]: drained cancel channel", runID)
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case wait = <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: CANCEL: requested", runID)
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: CANCEL: shutdown", runID)
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		bd, found, err := w.state.MineNextBlock(ctx, w.options(runID)...)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: run[%s]: mining duration[%v]", runID, duration)

		// A block accepted while this run was validating its own solution
		// moves the tip, so the run is stale rather than broken.
		again = err == nil || ctx.Err() != nil || errors.Is(err, database.ErrChainForked)

		switch {
		case err != nil && ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: CANCEL: complete", runID)
		case errors.Is(err, database.ErrChainForked):
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: STALE: %s", runID, err)
		case err != nil:
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: ERROR: %s", runID, err)
		case !found:
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: WARNING: no solution within the iteration limit", runID)
		default:
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: SOLVED: height[%d]: blk[%s]", runID, bd.Height, bd.Hash)
		}
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}

// options converts the worker configuration into search options.
func (w *Worker) options(runID string) []pow.Option {
	var opts []pow.Option

	if w.cfg.MaxIterations > 0 {
		opts = append(opts, pow.WithMaxIterations(w.cfg.MaxIterations))
	}

	if w.cfg.ProgressEvery > 0 {
		fn := func(p pow.Progress) {
			w.evHandler("worker: runMiningOperation: MINING: run[%s]: progress: attempts[%d]: nonce[%d]: elapsed[%v]: rate[%.0f H/s]", runID, p.Attempts, p.Nonce, p.Elapsed, p.HashRate)
		}
		opts = append(opts, pow.WithProgress(w.cfg.ProgressEvery, fn))
	}

	return opts
}
