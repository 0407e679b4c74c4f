package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
)

// ErrExcessiveReward is returned when a coinbase pays more than the block
// reward for its height.
var ErrExcessiveReward = errors.New("coinbase pays more than the block reward")

// =============================================================================

// AcceptBlock takes a block mined somewhere else, validates it against the
// tip and if that passes, adds the block to the chain.
func (s *State) AcceptBlock(block database.Block) (database.BlockData, error) {
	s.evHandler("state: AcceptBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Transactions))
	defer s.evHandler("state: AcceptBlock: completed: newBlk[%s]", block.Hash())

	s.mu.Lock()
	bd, err := s.validateUpdateDatabase(block)
	s.mu.Unlock()

	if err != nil {
		return database.BlockData{}, err
	}

	// If a mining operation is running it is working on a stale tip and
	// needs to stop. The G doing the mining won't return until done is
	// called.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: AcceptBlock: signal runMiningOperation to terminate")
			done()
		}()
	}

	return bd, nil
}

// =============================================================================

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, the block and its outputs are written
// to the database and it becomes the new tip. The caller must hold the lock.
func (s *State) validateUpdateDatabase(block database.Block) (database.BlockData, error) {
	height := s.tip.Height + 1

	s.evHandler("state: validateUpdateDatabase: validate block: height[%d]", height)

	expBits, err := s.nextBits(height)
	if err != nil {
		return database.BlockData{}, err
	}

	if err := block.ValidateBlock(s.tip.Block, expBits, s.genesis.MaxBlockSize, s.evHandler); err != nil {
		return database.BlockData{}, err
	}

	if h, ok := block.Transactions[0].CoinbaseHeight(); !ok || h != height {
		return database.BlockData{}, fmt.Errorf("coinbase height does not match, exp %d", height)
	}

	reward := s.genesis.BlockReward(height)
	if paid := block.Transactions[0].TotalOutput(); paid > reward {
		return database.BlockData{}, fmt.Errorf("%w: paid %d, allowed %d", ErrExcessiveReward, paid, reward)
	}

	s.evHandler("state: validateUpdateDatabase: write to disk")

	if err := s.db.CommitBlock(height, block); err != nil {
		return database.BlockData{}, err
	}

	s.tip = database.NewBlockData(height, block)

	// Send an event about this new block.
	s.blockEvent(s.tip)

	return s.tip, nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(bd database.BlockData) {
	blockHeaderJSON, err := json.Marshal(bd.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`event: block: {"hash":%q,"height":%d,"header":%s,"txs":%d}`, bd.Hash, bd.Height, string(blockHeaderJSON), len(bd.Transactions))
}
