// Package genesis maintains access to the chain parameters that are fixed at
// the genesis block.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
)

// Genesis represents the chain parameters.
type Genesis struct {
	Version            uint32   `json:"version"`             // Header version of the genesis block.
	Timestamp          uint64   `json:"timestamp"`           // Unix seconds of the genesis block.
	Bits               uint32   `json:"bits"`                // Compact difficulty of the genesis block.
	MiningReward       uint64   `json:"mining_reward"`       // Reward for mining a block before any halving.
	BurnAddress        [20]byte `json:"-"`                   // Recipient of the genesis coinbase.
	AdjustmentInterval uint64   `json:"adjustment_interval"` // Blocks between difficulty adjustments.
	HalvingInterval    uint64   `json:"halving_interval"`    // Blocks between reward halvings.
	CoinbaseMaturity   uint64   `json:"coinbase_maturity"`   // Blocks before a coinbase output can be spent.
	MaxBlockSize       uint64   `json:"max_block_size"`      // Largest encoded block accepted.
}

// Default returns the parameters of the main chain.
func Default() Genesis {
	return Genesis{
		Version:            1,
		Timestamp:          1609459200,
		Bits:               0x1d00ffff,
		MiningReward:       100_000_000_000,
		AdjustmentInterval: 2016,
		HalvingInterval:    210_000,
		CoinbaseMaturity:   100,
		MaxBlockSize:       1_000_000,
	}
}

// =============================================================================

// Load opens and consumes a genesis file. Fields missing from the file keep
// their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %q: %w", path, err)
	}

	if genesis.AdjustmentInterval == 0 || genesis.HalvingInterval == 0 || genesis.MaxBlockSize == 0 {
		return Genesis{}, fmt.Errorf("genesis %q: intervals and block size must be positive", path)
	}

	return genesis, nil
}

// BlockReward returns the coinbase amount for a block at the specified
// height. The reward halves every HalvingInterval blocks. A zero interval
// never halves.
func (g Genesis) BlockReward(height uint64) uint64 {
	if g.HalvingInterval == 0 {
		return g.MiningReward
	}

	halvings := height / g.HalvingInterval
	if halvings >= 64 {
		return 0
	}

	return g.MiningReward >> halvings
}
