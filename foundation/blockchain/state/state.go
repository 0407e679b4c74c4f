// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	DB           *database.Database
	MinerAddress signature.PubKeyHash
	EvHandler    EventHandler
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	minerAddress signature.PubKeyHash
	evHandler    EventHandler

	genesis genesis.Genesis
	db      *database.Database
	tip     database.BlockData

	Worker Worker
}

// New constructs a new blockchain for data management. An empty database
// gets the genesis block written at height 0.
func New(cfg Config) (*State, error) {
	if cfg.DB == nil {
		return nil, errors.New("state: database is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	state := State{
		minerAddress: cfg.MinerAddress,
		evHandler:    ev,
		genesis:      cfg.DB.Genesis(),
		db:           cfg.DB,
	}

	empty, err := cfg.DB.IsEmpty()
	if err != nil {
		return nil, fmt.Errorf("checking database: %w", err)
	}

	if empty {
		block := database.NewGenesisBlock(state.genesis)
		block.Header.MerkleRoot = block.CalculateMerkleRoot()

		ev("state: New: storing genesis block: blk[%s]", block.Hash())

		if err := cfg.DB.CommitBlock(0, block); err != nil {
			return nil, fmt.Errorf("storing genesis: %w", err)
		}
	}

	if err := state.loadTip(); err != nil {
		return nil, err
	}

	ev("state: New: tip: height[%d]: blk[%s]", state.tip.Height, state.tip.Hash)

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the database is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// =============================================================================

// loadTip reads the chain tip recorded in the database.
func (s *State) loadTip() error {
	hash, height, err := s.db.Best()
	if err != nil {
		return fmt.Errorf("reading tip: %w", err)
	}

	block, err := s.db.GetByHash(hash)
	if err != nil {
		return fmt.Errorf("reading tip: %w", err)
	}

	s.tip = database.NewBlockData(height, block)

	return nil
}
