package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
)

// ErrMalformed is returned when a binary blob can't be decoded.
var ErrMalformed = errors.New("malformed encoding")

// Smallest encodings, used to reject counts that can't fit in the input.
const (
	minInputSize  = digest.Size + 4 + 8 + 8
	outputSize    = 8 + 20
	minTxSize     = 4 + 8 + 8 + 8
	outPointSize  = digest.Size + 4
	spendableSize = outputSize + 8 + 1
)

// =============================================================================

// Encode serializes the header for hashing. The layout is fixed at 88 bytes,
// little-endian, with no padding:
//
//	version(4) prev(32) merkle(32) timestamp(8) bits(4) nonce(8)
func (h BlockHeader) Encode() []byte {
	buf := make([]byte, 0, HeaderSize)
	return h.appendTo(buf)
}

func (h BlockHeader) appendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, h.Version)
	buf = append(buf, h.PrevBlockHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Timestamp)
	buf = binary.LittleEndian.AppendUint32(buf, h.Bits)
	buf = binary.LittleEndian.AppendUint64(buf, h.Nonce)

	return buf
}

// Encode serializes the transaction. Byte slices and lists carry a u64
// length prefix.
func (tx Transaction) Encode() []byte {
	return tx.appendTo(nil)
}

func (tx Transaction) appendTo(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.PreviousOutput[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.OutputIndex)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(in.Signature)))
		buf = append(buf, in.Signature...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(in.PublicKey)))
		buf = append(buf, in.PublicKey...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Amount)
		buf = append(buf, out.Recipient[:]...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, tx.Locktime)

	return buf
}

// EncodeBlock serializes a block for storage: the header followed by a u64
// transaction count and the transactions.
func EncodeBlock(block Block) []byte {
	buf := make([]byte, 0, HeaderSize+8+len(block.Transactions)*(minTxSize+minInputSize+outputSize))
	buf = block.Header.appendTo(buf)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(block.Transactions)))
	for _, tx := range block.Transactions {
		buf = tx.appendTo(buf)
	}

	return buf
}

// DecodeBlock reconstructs a block written by EncodeBlock. Truncated input,
// impossible lengths and trailing bytes are rejected.
func DecodeBlock(data []byte) (Block, error) {
	d := decoder{buf: data}

	var block Block
	block.Header = d.header()

	n := d.count(minTxSize)
	if d.err == nil {
		block.Transactions = make([]Transaction, 0, n)
		for i := uint64(0); i < n && d.err == nil; i++ {
			block.Transactions = append(block.Transactions, d.transaction())
		}
	}

	if err := d.finish(); err != nil {
		return Block{}, err
	}

	return block, nil
}

// DecodeTransaction reconstructs a transaction written by Transaction.Encode.
func DecodeTransaction(data []byte) (Transaction, error) {
	d := decoder{buf: data}
	tx := d.transaction()

	if err := d.finish(); err != nil {
		return Transaction{}, err
	}

	return tx, nil
}

// =============================================================================

// decoder walks a byte slice. The first failure sticks and every later read
// returns zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}

	if n < 0 || len(d.buf)-d.off < n {
		d.fail("need %d bytes at offset %d, have %d", n, d.off, len(d.buf)-d.off)
		return nil
	}

	b := d.buf[d.off : d.off+n]
	d.off += n

	return b
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) digest() digest.Digest {
	var v digest.Digest
	copy(v[:], d.take(digest.Size))

	return v
}

// count reads a list length and rejects it when the remaining input can't
// hold that many elements of at least elemSize bytes.
func (d *decoder) count(elemSize int) uint64 {
	n := d.u64()
	if d.err != nil {
		return 0
	}

	if n > uint64(len(d.buf)-d.off)/uint64(elemSize) {
		d.fail("count %d exceeds remaining input", n)
		return 0
	}

	return n
}

func (d *decoder) bytes() []byte {
	n := d.u64()
	if d.err != nil {
		return nil
	}

	if n > uint64(len(d.buf)-d.off) {
		d.fail("length %d exceeds remaining input", n)
		return nil
	}

	b := make([]byte, n)
	copy(b, d.take(int(n)))

	return b
}

func (d *decoder) header() BlockHeader {
	return BlockHeader{
		Version:       d.u32(),
		PrevBlockHash: d.digest(),
		MerkleRoot:    d.digest(),
		Timestamp:     d.u64(),
		Bits:          d.u32(),
		Nonce:         d.u64(),
	}
}

func (d *decoder) transaction() Transaction {
	var tx Transaction
	tx.Version = d.u32()

	nIn := d.count(minInputSize)
	if nIn > 0 {
		tx.Inputs = make([]TxInput, 0, nIn)
	}
	for i := uint64(0); i < nIn && d.err == nil; i++ {
		tx.Inputs = append(tx.Inputs, TxInput{
			PreviousOutput: d.digest(),
			OutputIndex:    d.u32(),
			Signature:      d.bytes(),
			PublicKey:      d.bytes(),
		})
	}

	nOut := d.count(outputSize)
	if nOut > 0 {
		tx.Outputs = make([]TxOutput, 0, nOut)
	}
	for i := uint64(0); i < nOut && d.err == nil; i++ {
		var out TxOutput
		out.Amount = d.u64()
		copy(out.Recipient[:], d.take(len(out.Recipient)))
		tx.Outputs = append(tx.Outputs, out)
	}

	tx.Locktime = d.u64()

	return tx
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}

	if d.off != len(d.buf) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(d.buf)-d.off)
	}

	return nil
}
