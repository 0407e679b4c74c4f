package state

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/pow"
)

// NextBits returns the compact difficulty a block at the specified height
// must carry. Blocks repeat their parent's bits except on an adjustment
// boundary, where the time the last interval took is compared with the
// time it should have taken.
func (s *State) NextBits(height uint64) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextBits(height)
}

// NewBlockTemplate constructs the next block on top of the tip paying the
// block reward to the miner address, followed by the specified transactions
// in order. The merkle root and bits are filled in; only the nonce is left
// to be searched. Transactions are committed to, not validated.
func (s *State) NewBlockTemplate(now time.Time, txs ...database.Transaction) (database.Block, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.newBlockTemplate(now, txs)
}

// MineNextBlock builds a template on top of the tip, searches for a nonce
// and adds the solved block to the chain. found is false when the search
// options ran out before a solution was found.
func (s *State) MineNextBlock(ctx context.Context, opts ...pow.Option) (database.BlockData, bool, error) {
	s.evHandler("state: MineNextBlock: MINING: build template")

	block, height, err := s.NewBlockTemplate(time.Now())
	if err != nil {
		return database.BlockData{}, false, err
	}

	s.evHandler("state: MineNextBlock: MINING: perform POW: height[%d]: bits[0x%08x]", height, block.Header.Bits)

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	res, found, err := pow.Mine(ctx, block, opts...)
	if err != nil {
		return database.BlockData{}, false, err
	}

	if !found {
		s.evHandler("state: MineNextBlock: MINING: search exhausted: attempts[%d]", res.Attempts)
		return database.BlockData{}, false, nil
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.BlockData{}, false, ctx.Err()
	}

	s.evHandler("state: MineNextBlock: MINING: solved: blk[%s]: nonce[%d]: attempts[%d]", res.Hash, res.Block.Header.Nonce, res.Attempts)

	s.mu.Lock()
	defer s.mu.Unlock()

	bd, err := s.validateUpdateDatabase(res.Block)
	if err != nil {
		return database.BlockData{}, false, err
	}

	return bd, true, nil
}

// =============================================================================

func (s *State) nextBits(height uint64) (uint32, error) {
	if height == 0 {
		return s.genesis.Bits, nil
	}

	parent, err := s.db.GetByHeight(height - 1)
	if err != nil {
		return 0, fmt.Errorf("next bits: parent: %w", err)
	}

	interval := s.genesis.AdjustmentInterval
	if interval == 0 || height%interval != 0 {
		return parent.Header.Bits, nil
	}

	first, err := s.db.GetByHeight(height - interval)
	if err != nil {
		return 0, fmt.Errorf("next bits: epoch start: %w", err)
	}

	// interval-1 gaps measured against interval*BlockTime, as Bitcoin does.
	var actual uint64
	if parent.Header.Timestamp > first.Header.Timestamp {
		actual = parent.Header.Timestamp - first.Header.Timestamp
	}
	target := difficulty.CalculateTargetTime(interval)

	bits, err := difficulty.Adjust(parent.Header.Bits, actual, target)
	if err != nil {
		return 0, fmt.Errorf("next bits: %w", err)
	}

	s.evHandler("state: nextBits: retarget: height[%d]: actual[%ds]: target[%ds]: bits[0x%08x] -> [0x%08x]", height, actual, target, parent.Header.Bits, bits)

	return bits, nil
}

func (s *State) newBlockTemplate(now time.Time, txs []database.Transaction) (database.Block, uint64, error) {
	parent := s.tip
	height := parent.Height + 1

	bits, err := s.nextBits(height)
	if err != nil {
		return database.Block{}, 0, err
	}

	// Timestamps must move forward even when the clock does not.
	timestamp := uint64(now.Unix())
	if timestamp <= parent.Header.Timestamp {
		timestamp = parent.Header.Timestamp + 1
	}

	coinbase := database.NewCoinbase(s.minerAddress, s.genesis.BlockReward(height), height)

	block := database.Block{
		Header: database.BlockHeader{
			Version:       s.genesis.Version,
			PrevBlockHash: parent.Hash,
			Timestamp:     timestamp,
			Bits:          bits,
		},
		Transactions: append([]database.Transaction{coinbase}, txs...),
	}
	block.Header.MerkleRoot = block.CalculateMerkleRoot()

	return block, height, nil
}
