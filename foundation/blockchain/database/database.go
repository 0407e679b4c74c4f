// Package database handles all the lower level support for maintaining the
// blockchain in a key value store: blocks by hash, the height index, the
// chain tip and the set of spendable outputs.
package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
)

// Reserved keys. Every other key is a 32 byte block hash, an 8 byte height
// or a 36 byte outpoint so the key spaces can't collide.
var (
	keyBest   = []byte("best")
	keyHeight = []byte("height")
)

// =============================================================================

// SpendableOutput is an output that has not been spent yet, with the
// information needed to decide when it may be spent.
type SpendableOutput struct {
	Output   TxOutput `json:"output"`
	Height   uint64   `json:"height"`
	Coinbase bool     `json:"coinbase"`
}

// Database manages the blockchain held in a Storage implementation.
type Database struct {
	mu sync.Mutex

	genesis   genesis.Genesis
	storage   Storage
	evHandler func(v string, args ...any)
}

// New constructs a database over the specified storage.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) *Database {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &Database{
		genesis:   gen,
		storage:   storage,
		evHandler: evHandler,
	}
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// Genesis returns the chain parameters the database was opened with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// =============================================================================

// PutBlock stores the block under its hash and indexes it by height in one
// atomic write. The chain tip is not changed.
func (db *Database) PutBlock(height uint64, block Block) error {
	var batch Batch
	if err := db.addBlock(&batch, height, block); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Write(&batch); err != nil {
		return fmt.Errorf("put block %d: %w", height, err)
	}

	return nil
}

// CommitBlock stores the block, its height index, the new tip and the changes
// to the spendable outputs in one atomic write.
func (db *Database) CommitBlock(height uint64, block Block) error {
	var batch Batch
	if err := db.addBlock(&batch, height, block); err != nil {
		return err
	}

	hash := block.Hash()
	batch.Put(keyBest, hash[:])
	batch.Put(keyHeight, heightKey(height))

	var spent, created int
	for _, tx := range block.Transactions {
		coinbase := tx.IsCoinbase()

		if !coinbase {
			for _, in := range tx.Inputs {
				batch.Delete(outPointKey(in.OutPoint()))
				spent++
			}
		}

		txID := tx.Hash()
		for i, out := range tx.Outputs {
			op := OutPoint{TxID: txID, Index: uint32(i)}
			so := SpendableOutput{Output: out, Height: height, Coinbase: coinbase}
			batch.Put(outPointKey(op), encodeSpendable(so))
			created++
		}
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Write(&batch); err != nil {
		return fmt.Errorf("commit block %d: %w", height, err)
	}

	db.evHandler("database: CommitBlock: blk[%d]: hash[%s]: outputs spent[%d] created[%d]", height, hash, spent, created)

	return nil
}

// SetBest records the chain tip.
func (db *Database) SetBest(height uint64, hash digest.Digest) error {
	var batch Batch
	batch.Put(keyBest, hash[:])
	batch.Put(keyHeight, heightKey(height))

	db.mu.Lock()
	defer db.mu.Unlock()

	return db.storage.Write(&batch)
}

// Best returns the hash and height of the chain tip. ErrNotFound is returned
// for an empty chain.
func (db *Database) Best() (digest.Digest, uint64, error) {
	b, err := db.storage.Get(keyBest)
	if err != nil {
		return digest.Zero, 0, fmt.Errorf("best: %w", err)
	}

	hash, err := digest.FromBytes(b)
	if err != nil {
		return digest.Zero, 0, fmt.Errorf("best: %w: %s", ErrMalformed, err)
	}

	height, err := db.Height()
	if err != nil {
		return digest.Zero, 0, err
	}

	return hash, height, nil
}

// Height returns the height of the chain tip. ErrNotFound is returned for an
// empty chain.
func (db *Database) Height() (uint64, error) {
	b, err := db.storage.Get(keyHeight)
	if err != nil {
		return 0, fmt.Errorf("height: %w", err)
	}

	if len(b) != 8 {
		return 0, fmt.Errorf("height: %w: %d bytes", ErrMalformed, len(b))
	}

	return binary.BigEndian.Uint64(b), nil
}

// IsEmpty reports whether no tip has been recorded.
func (db *Database) IsEmpty() (bool, error) {
	ok, err := db.storage.Has(keyBest)
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// GetByHash returns the block stored under the specified hash.
func (db *Database) GetByHash(hash digest.Digest) (Block, error) {
	b, err := db.storage.Get(hash[:])
	if err != nil {
		return Block{}, fmt.Errorf("block %s: %w", hash, err)
	}

	block, err := DecodeBlock(b)
	if err != nil {
		return Block{}, fmt.Errorf("block %s: %w", hash, err)
	}

	return block, nil
}

// HashByHeight returns the hash indexed at the specified height.
func (db *Database) HashByHeight(height uint64) (digest.Digest, error) {
	b, err := db.storage.Get(heightKey(height))
	if err != nil {
		return digest.Zero, fmt.Errorf("height %d: %w", height, err)
	}

	hash, err := digest.FromBytes(b)
	if err != nil {
		return digest.Zero, fmt.Errorf("height %d: %w: %s", height, ErrMalformed, err)
	}

	return hash, nil
}

// GetByHeight returns the block indexed at the specified height.
func (db *Database) GetByHeight(height uint64) (Block, error) {
	hash, err := db.HashByHeight(height)
	if err != nil {
		return Block{}, err
	}

	return db.GetByHash(hash)
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block up to the tip.
func (db *Database) ForEach() *Iterator {
	height, err := db.Height()
	if err != nil {
		return &Iterator{db: db, eoc: true}
	}

	return &Iterator{db: db, last: height}
}

// =============================================================================

// AddOutput records a spendable output.
func (db *Database) AddOutput(op OutPoint, so SpendableOutput) error {
	var batch Batch
	batch.Put(outPointKey(op), encodeSpendable(so))

	return db.storage.Write(&batch)
}

// RemoveOutput removes a spendable output.
func (db *Database) RemoveOutput(op OutPoint) error {
	var batch Batch
	batch.Delete(outPointKey(op))

	return db.storage.Write(&batch)
}

// GetOutput returns a spendable output. ErrNotFound is returned when the
// output does not exist or was spent.
func (db *Database) GetOutput(op OutPoint) (SpendableOutput, error) {
	b, err := db.storage.Get(outPointKey(op))
	if err != nil {
		return SpendableOutput{}, fmt.Errorf("output %s: %w", op, err)
	}

	so, err := decodeSpendable(b)
	if err != nil {
		return SpendableOutput{}, fmt.Errorf("output %s: %w", op, err)
	}

	return so, nil
}

// HasOutput reports whether the output is spendable.
func (db *Database) HasOutput(op OutPoint) (bool, error) {
	return db.storage.Has(outPointKey(op))
}

// IsMature reports whether a spendable output may be spent in a block at the
// specified height. Coinbase outputs wait CoinbaseMaturity blocks.
func (db *Database) IsMature(so SpendableOutput, height uint64) bool {
	if !so.Coinbase {
		return true
	}

	return height >= so.Height+db.genesis.CoinbaseMaturity
}

// =============================================================================

// Iterator walks the blocks of the chain by height.
type Iterator struct {
	db      *Database
	current uint64
	last    uint64
	eoc     bool
}

// Next retrieves the next block. Once the tip has been returned the iterator
// is done and Next returns an error.
func (it *Iterator) Next() (Block, error) {
	if it.eoc || it.current > it.last {
		it.eoc = true
		return Block{}, errors.New("end of chain")
	}

	block, err := it.db.GetByHeight(it.current)
	if err != nil {
		it.eoc = true
		return Block{}, err
	}

	it.current++

	return block, nil
}

// Height returns the height of the block most recently returned by Next.
func (it *Iterator) Height() uint64 {
	if it.current == 0 {
		return 0
	}

	return it.current - 1
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}

// =============================================================================

func (db *Database) addBlock(batch *Batch, height uint64, block Block) error {
	data := EncodeBlock(block)
	if limit := db.genesis.MaxBlockSize; limit > 0 && uint64(len(data)) > limit {
		return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, len(data), limit)
	}

	hash := block.Hash()
	batch.Put(hash[:], data)
	batch.Put(heightKey(height), hash[:])

	return nil
}

func heightKey(height uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, height)

	return k
}

func outPointKey(op OutPoint) []byte {
	k := make([]byte, 0, outPointSize)
	k = append(k, op.TxID[:]...)
	k = binary.BigEndian.AppendUint32(k, op.Index)

	return k
}

func encodeSpendable(so SpendableOutput) []byte {
	buf := make([]byte, 0, spendableSize)
	buf = binary.LittleEndian.AppendUint64(buf, so.Output.Amount)
	buf = append(buf, so.Output.Recipient[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, so.Height)

	var cb byte
	if so.Coinbase {
		cb = 1
	}

	return append(buf, cb)
}

func decodeSpendable(b []byte) (SpendableOutput, error) {
	if len(b) != spendableSize {
		return SpendableOutput{}, fmt.Errorf("%w: spendable output is %d bytes, exp %d", ErrMalformed, len(b), spendableSize)
	}

	var so SpendableOutput
	so.Output.Amount = binary.LittleEndian.Uint64(b[0:8])
	copy(so.Output.Recipient[:], b[8:28])
	so.Height = binary.LittleEndian.Uint64(b[28:36])
	so.Coinbase = b[36] == 1

	return so, nil
}
