// Package pow implements the proof of work search and its verification.
package pow

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
)

// Result is a solved block and its hash.
type Result struct {
	Block    database.Block
	Hash     digest.Digest
	Attempts uint64
}

// Progress is a snapshot of a running search handed to the progress
// function. It is observational only.
type Progress struct {
	Attempts uint64
	Nonce    uint64
	Elapsed  time.Duration
	HashRate float64
}

// =============================================================================

type config struct {
	start         uint64
	end           uint64
	maxIterations uint64
	bounded       bool
	every         uint64
	progress      func(Progress)
}

// Option changes how a search is run.
type Option func(*config)

// WithMaxIterations bounds the search to n attempts.
func WithMaxIterations(n uint64) Option {
	return func(cfg *config) {
		cfg.maxIterations = n
		cfg.bounded = true
	}
}

// WithNonceRange restricts the search to nonces in [start, end). Disjoint
// ranges let independent searches share the nonce space.
func WithNonceRange(start, end uint64) Option {
	return func(cfg *config) {
		cfg.start = start
		cfg.end = end
	}
}

// WithProgress calls fn every n attempts.
func WithProgress(every uint64, fn func(Progress)) Option {
	return func(cfg *config) {
		cfg.every = every
		cfg.progress = fn
	}
}

// =============================================================================

// Mine searches for a nonce that makes the block hash meet the target in the
// header bits. Only the nonce changes between attempts; the caller must have
// set the merkle root and bits already. The block passed in is not modified.
//
// found is false with a nil error when the iterations or nonce range run out.
// A cancelled context stops the search between attempts and its error is
// returned.
func Mine(ctx context.Context, block database.Block, opts ...Option) (Result, bool, error) {
	cfg := config{
		end: math.MaxUint64,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	target, err := difficulty.BitsToTarget(block.Header.Bits)
	if err != nil {
		return Result{}, false, err
	}

	var limit uint64
	if cfg.end > cfg.start {
		limit = cfg.end - cfg.start
	}
	if cfg.bounded && cfg.maxIterations < limit {
		limit = cfg.maxIterations
	}

	// The header is encoded once and only the nonce bytes are rewritten.
	header := block.Header.Encode()
	nonceBytes := header[database.NonceOffset : database.NonceOffset+8]

	done := ctx.Done()
	start := time.Now()

	for i := uint64(0); i < limit; i++ {
		select {
		case <-done:
			return Result{Attempts: i}, false, ctx.Err()
		default:
		}

		nonce := cfg.start + i
		binary.LittleEndian.PutUint64(nonceBytes, nonce)

		hash := digest.DoubleHash(header)
		if difficulty.HashMeetsTarget(hash, target) {
			nb := block.Clone()
			nb.Header.Nonce = nonce

			return Result{Block: nb, Hash: hash, Attempts: i + 1}, true, nil
		}

		if cfg.progress != nil && cfg.every > 0 && (i+1)%cfg.every == 0 {
			cfg.progress(newProgress(i+1, nonce, time.Since(start)))
		}
	}

	return Result{Attempts: limit}, false, nil
}

// Verify reports whether the block meets its difficulty target. Miners and
// validators use the same predicate.
func Verify(block database.Block) bool {
	return block.MeetsDifficultyTarget()
}

// =============================================================================

func newProgress(attempts, nonce uint64, elapsed time.Duration) Progress {
	var rate float64
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(attempts) / secs
	}

	return Progress{
		Attempts: attempts,
		Nonce:    nonce,
		Elapsed:  elapsed,
		HashRate: rate,
	}
}
