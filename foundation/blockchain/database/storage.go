package database

import "errors"

// ErrNotFound is returned when a key, block or output does not exist.
var ErrNotFound = errors.New("not found")

// Storage interface represents the behavior required to be implemented by any
// package providing support for persisting the blockchain. Get returns
// ErrNotFound for a missing key. Write applies every operation of the batch
// or none of them.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Write(batch *Batch) error
	Close() error
}

// =============================================================================

// BatchOp is a single write inside a batch.
type BatchOp struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch collects writes that must land together.
type Batch struct {
	ops []BatchOp
}

// Put records a key/value write. The slices are copied.
func (b *Batch) Put(key []byte, value []byte) {
	b.ops = append(b.ops, BatchOp{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
	})
}

// Delete records the removal of a key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, BatchOp{
		Key:    append([]byte(nil), key...),
		Delete: true,
	})
}

// Ops returns the operations in the order they were recorded.
func (b *Batch) Ops() []BatchOp {
	return b.ops
}

// Len returns the number of operations in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}
