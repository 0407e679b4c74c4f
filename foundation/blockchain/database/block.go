package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/merkle"
)

// Layout of the encoded header.
const (
	HeaderSize  = 88
	NonceOffset = 80
)

// Set of error variables for block validation.
var (
	ErrInsufficientWork = errors.New("block hash does not meet the difficulty target")
	ErrBlockTooLarge    = errors.New("block exceeds the maximum size")
	ErrChainForked      = errors.New("block does not extend the chain tip")
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version       uint32        `json:"version"`         // Bitcoin: Block format version.
	PrevBlockHash digest.Digest `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	MerkleRoot    digest.Digest `json:"merkle_root"`     // Bitcoin: Merkle root of the transactions in this block.
	Timestamp     uint64        `json:"timestamp"`       // Bitcoin: Time the block was mined, unix seconds.
	Bits          uint32        `json:"bits"`            // Bitcoin: Compact difficulty target.
	Nonce         uint64        `json:"nonce"`           // Bitcoin: Value identified to solve the hash solution.
}

// Hash returns the double hash of the encoded header.
func (h BlockHeader) Hash() digest.Digest {
	return digest.DoubleHash(h.Encode())
}

// Block represents a group of transactions batched together.
type Block struct {
	Header       BlockHeader   `json:"header"`
	Transactions []Transaction `json:"transactions"`
}

// Genesis returns the genesis block of the main chain. The merkle root is
// left at zero; callers that store or mine it fill it in.
func Genesis() Block {
	return NewGenesisBlock(genesis.Default())
}

// NewGenesisBlock constructs the first block of a chain from its parameters.
// It holds a single coinbase paying the burn address.
func NewGenesisBlock(gen genesis.Genesis) Block {
	return Block{
		Header: BlockHeader{
			Version:       gen.Version,
			PrevBlockHash: digest.Zero,
			MerkleRoot:    digest.Zero,
			Timestamp:     gen.Timestamp,
			Bits:          gen.Bits,
			Nonce:         0,
		},
		Transactions: []Transaction{
			NewCoinbase(gen.BurnAddress, gen.MiningReward, 0),
		},
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() digest.Digest {

	// CORE NOTE: Hashing the block header and not the whole block so the blockchain
	// can be cryptographically checked by only needing block headers and not full
	// blocks with the transaction data.

	return b.Header.Hash()
}

// CalculateMerkleRoot returns the merkle root over the hashes of the block's
// transactions in order. No transactions produce the zero digest.
func (b Block) CalculateMerkleRoot() digest.Digest {
	return merkle.NewTree(b.Transactions).Root()
}

// Target returns the target digest encoded in the header bits.
func (b Block) Target() (digest.Digest, error) {
	return difficulty.BitsToTarget(b.Header.Bits)
}

// MeetsDifficultyTarget reports whether the block hash is at or below the
// target encoded in the header bits. Bits that can't be decoded never meet
// the target.
func (b Block) MeetsDifficultyTarget() bool {
	return b.CheckProofOfWork() == nil
}

// CheckProofOfWork is MeetsDifficultyTarget with an error describing why the
// block fails.
func (b Block) CheckProofOfWork() error {
	target, err := b.Target()
	if err != nil {
		return err
	}

	hash := b.Hash()
	if !difficulty.HashMeetsTarget(hash, target) {
		return fmt.Errorf("%w: hash %s, target %s", ErrInsufficientWork, hash, target)
	}

	return nil
}

// Size returns the length of the block's storage encoding.
func (b Block) Size() int {
	size := HeaderSize + 8
	for _, tx := range b.Transactions {
		size += len(tx.Encode())
	}

	return size
}

// Clone returns a deep copy of the block so a miner can change the nonce
// without touching the caller's value.
func (b Block) Clone() Block {
	nb := Block{
		Header:       b.Header,
		Transactions: make([]Transaction, len(b.Transactions)),
	}

	for i, tx := range b.Transactions {
		ntx := tx
		ntx.Inputs = make([]TxInput, len(tx.Inputs))
		for j, in := range tx.Inputs {
			in.Signature = append([]byte(nil), in.Signature...)
			in.PublicKey = append([]byte(nil), in.PublicKey...)
			ntx.Inputs[j] = in
		}
		ntx.Outputs = append([]TxOutput(nil), tx.Outputs...)
		nb.Transactions[i] = ntx
	}

	return nb
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain on top of the previous block with the bits the schedule expects.
func (b Block) ValidateBlock(previousBlock Block, expBits uint32, maxBlockSize uint64, evHandler func(v string, args ...any)) error {
	hash := b.Hash()

	evHandler("database: ValidateBlock: validate: blk[%s]: check: parent hash does match parent block", hash)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrChainForked, b.Header.PrevBlockHash, previousBlock.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block bits match the schedule", hash)

	if b.Header.Bits != expBits {
		return fmt.Errorf("block bits do not follow the schedule, got 0x%08x, exp 0x%08x", b.Header.Bits, expBits)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block hash has been solved", hash)

	if err := b.CheckProofOfWork(); err != nil {
		return err
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block's timestamp is greater than parent block's timestamp", hash)

	parentTime := time.Unix(int64(previousBlock.Header.Timestamp), 0)
	blockTime := time.Unix(int64(b.Header.Timestamp), 0)
	if !blockTime.After(parentTime) {
		return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: first transaction is the only coinbase", hash)

	if len(b.Transactions) == 0 || !b.Transactions[0].IsCoinbase() {
		return errors.New("first transaction must be a coinbase")
	}
	for i, tx := range b.Transactions[1:] {
		if tx.IsCoinbase() {
			return fmt.Errorf("transaction %d is a second coinbase", i+1)
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: merkle root does match transactions", hash)

	if root := b.CalculateMerkleRoot(); b.Header.MerkleRoot != root {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", root, b.Header.MerkleRoot)
	}

	evHandler("database: ValidateBlock: validate: blk[%s]: check: block size is within limits", hash)

	if size := b.Size(); maxBlockSize > 0 && uint64(size) > maxBlockSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, size, maxBlockSize)
	}

	return nil
}

// =============================================================================

// BlockData represents what is returned to clients that ask for a block.
type BlockData struct {
	Hash   digest.Digest `json:"hash"`
	Height uint64        `json:"height"`
	Valid  bool          `json:"valid"`
	Block
}

// NewBlockData constructs the value to return to clients.
func NewBlockData(height uint64, block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Height: height,
		Valid:  block.MeetsDifficultyTarget(),
		Block:  block,
	}
}
