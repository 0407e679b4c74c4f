package state

import (
	"fmt"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/merkle"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// TxProof proves a transaction is committed to by a block's merkle root.
// Hash the transaction id with each proof hash, on the side named by order,
// to arrive at the root.
type TxProof struct {
	Height          uint64          `json:"height"`
	Block           digest.Digest   `json:"block"`
	TxID            digest.Digest   `json:"txid"`
	MerkleRoot      digest.Digest   `json:"merkle_root"`
	Proof           []digest.Digest `json:"proof"`
	Order           []int64         `json:"order"`
	Verified        bool            `json:"verified"`
	SignaturesValid bool            `json:"signatures_valid"`
	SignatureError  string          `json:"signature_error,omitempty"`
}

// =============================================================================

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// MinerAddress returns the address block rewards are paid to.
func (s *State) MinerAddress() string {
	return s.minerAddress.Address()
}

// Tip returns a copy of the current latest block.
func (s *State) Tip() database.BlockData {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tip
}

// BlockByHeight returns the block on the chain at the specified height.
func (s *State) BlockByHeight(height uint64) (database.BlockData, error) {
	block, err := s.db.GetByHeight(height)
	if err != nil {
		return database.BlockData{}, err
	}

	return database.NewBlockData(height, block), nil
}

// BlockByHash returns the block stored under the specified hash. The height
// comes from the block's coinbase.
func (s *State) BlockByHash(hash digest.Digest) (database.BlockData, error) {
	block, err := s.db.GetByHash(hash)
	if err != nil {
		return database.BlockData{}, err
	}

	var height uint64
	if len(block.Transactions) > 0 {
		height, _ = block.Transactions[0].CoinbaseHeight()
	}

	return database.NewBlockData(height, block), nil
}

// QueryBlocksByHeight returns the set of blocks between the two heights,
// inclusive. QueryLatest can be used for either bound.
func (s *State) QueryBlocksByHeight(from uint64, to uint64) ([]database.BlockData, error) {
	tip := s.Tip().Height

	if from == QueryLatest {
		from = tip
	}
	if to == QueryLatest || to > tip {
		to = tip
	}
	if from > to {
		return nil, fmt.Errorf("invalid range %d to %d", from, to)
	}

	out := make([]database.BlockData, 0, to-from+1)
	for i := from; i <= to; i++ {
		bd, err := s.BlockByHeight(i)
		if err != nil {
			return nil, err
		}
		out = append(out, bd)
	}

	return out, nil
}

// TransactionProof builds the merkle inclusion proof for the transaction
// with the specified id inside the block at the specified height. The input
// signatures are checked and reported, not enforced.
func (s *State) TransactionProof(height uint64, txID digest.Digest) (TxProof, error) {
	block, err := s.db.GetByHeight(height)
	if err != nil {
		return TxProof{}, err
	}

	tree := merkle.NewTree(block.Transactions)

	for _, tx := range block.Transactions {
		if tx.Hash() != txID {
			continue
		}

		proof, order, err := tree.Proof(tx)
		if err != nil {
			return TxProof{}, fmt.Errorf("proof: %w", err)
		}

		txp := TxProof{
			Height:     height,
			Block:      block.Hash(),
			TxID:       txID,
			MerkleRoot: block.Header.MerkleRoot,
			Proof:      proof,
			Order:      order,
			Verified:   merkle.VerifyProof(txID, proof, order, block.Header.MerkleRoot),
		}

		if err := tx.VerifySignatures(); err != nil {
			txp.SignatureError = err.Error()
		} else {
			txp.SignaturesValid = true
		}

		return txp, nil
	}

	return TxProof{}, fmt.Errorf("transaction %s at height %d: %w", txID, height, database.ErrNotFound)
}

// Output returns the spendable output identified by the outpoint.
func (s *State) Output(op database.OutPoint) (database.SpendableOutput, error) {
	return s.db.GetOutput(op)
}
