package database

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CoinbaseIndex is the output index a coinbase input points at. Together
// with a zero previous output it marks the input as minting new coins.
const CoinbaseIndex = 0xFFFFFFFF

// =============================================================================

// OutPoint identifies a single output of a transaction.
type OutPoint struct {
	TxID  digest.Digest `json:"txid"`
	Index uint32        `json:"index"`
}

// String implements the fmt.Stringer interface for logging.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// TxInput spends a previous output.
type TxInput struct {
	PreviousOutput digest.Digest `json:"previous_output"` // Hash of the transaction holding the output.
	OutputIndex    uint32        `json:"output_index"`    // Index of the output in that transaction.
	Signature      hexutil.Bytes `json:"signature"`       // Ed25519 signature proving ownership.
	PublicKey      hexutil.Bytes `json:"public_key"`      // Public key of the spender.
}

// OutPoint returns the output this input spends.
func (in TxInput) OutPoint() OutPoint {
	return OutPoint{TxID: in.PreviousOutput, Index: in.OutputIndex}
}

// TxOutput creates new spendable coins.
type TxOutput struct {
	Amount    uint64               `json:"amount"`    // Amount in the smallest unit.
	Recipient signature.PubKeyHash `json:"recipient"` // Hash of the recipient's public key.
}

// Transaction is the transfer of value recorded inside a block.
type Transaction struct {
	Version  uint32     `json:"version"`
	Inputs   []TxInput  `json:"inputs"`
	Outputs  []TxOutput `json:"outputs"`
	Locktime uint64     `json:"locktime"`
}

// NewCoinbase constructs the reward transaction for a block. The block height
// is carried in the input's public key field so coinbase transactions at
// different heights never share a hash.
func NewCoinbase(recipient signature.PubKeyHash, amount uint64, height uint64) Transaction {
	h := make([]byte, 8)
	binary.LittleEndian.PutUint64(h, height)

	return Transaction{
		Version: 1,
		Inputs: []TxInput{
			{
				PreviousOutput: digest.Zero,
				OutputIndex:    CoinbaseIndex,
				Signature:      hexutil.Bytes{},
				PublicKey:      h,
			},
		},
		Outputs: []TxOutput{
			{
				Amount:    amount,
				Recipient: recipient,
			},
		},
	}
}

// IsCoinbase reports whether the transaction has exactly one input that
// points at the zero digest with the coinbase index.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 &&
		tx.Inputs[0].PreviousOutput.IsZero() &&
		tx.Inputs[0].OutputIndex == CoinbaseIndex
}

// CoinbaseHeight returns the block height carried by a coinbase transaction.
func (tx Transaction) CoinbaseHeight() (uint64, bool) {
	if !tx.IsCoinbase() || len(tx.Inputs[0].PublicKey) != 8 {
		return 0, false
	}

	return binary.LittleEndian.Uint64(tx.Inputs[0].PublicKey), true
}

// Hash implements the merkle Hashable interface. It is the single hash of
// the transaction's binary encoding and serves as the transaction id.
func (tx Transaction) Hash() digest.Digest {
	return digest.Hash(tx.Encode())
}

// Equals implements the merkle Hashable interface.
func (tx Transaction) Equals(other Transaction) bool {
	return tx.Hash() == other.Hash()
}

// TotalOutput sums the amounts of all outputs.
func (tx Transaction) TotalOutput() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Amount
	}

	return total
}

// =============================================================================

// SigHash returns the digest an input signs: the transaction encoded with
// every input signature and public key emptied.
func (tx Transaction) SigHash() digest.Digest {
	stripped := tx
	stripped.Inputs = make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		in.Signature = nil
		in.PublicKey = nil
		stripped.Inputs[i] = in
	}

	return digest.Hash(stripped.Encode())
}

// Sign fills in the public key and signature of the input at the specified
// index.
func (tx *Transaction) Sign(index int, privateKey ed25519.PrivateKey) error {
	if index < 0 || index >= len(tx.Inputs) {
		return fmt.Errorf("input index %d out of range", index)
	}

	tx.Inputs[index].PublicKey = hexutil.Bytes(privateKey.Public().(ed25519.PublicKey))

	sh := tx.SigHash()
	tx.Inputs[index].Signature = signature.Sign(privateKey, sh[:])

	return nil
}

// VerifySignatures checks the signature of every input against its public
// key. Coinbase transactions carry no signatures.
func (tx Transaction) VerifySignatures() error {
	if tx.IsCoinbase() {
		return nil
	}

	if len(tx.Inputs) == 0 {
		return errors.New("transaction has no inputs")
	}

	sh := tx.SigHash()
	for i, in := range tx.Inputs {
		if err := signature.VerifySignature(in.PublicKey, sh[:], in.Signature); err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
	}

	return nil
}
