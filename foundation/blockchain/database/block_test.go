package database_test

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
)

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to construct the genesis block.")
	{
		b := database.Genesis()

		if b.Header.Version != 1 || b.Header.Timestamp != 1609459200 || b.Header.Bits != 0x1d00ffff || b.Header.Nonce != 0 {
			t.Fatalf("\t%s\tShould have the fixed header fields: %+v", failed, b.Header)
		}
		t.Logf("\t%s\tShould have the fixed header fields.", success)

		if b.Header.PrevBlockHash != digest.Zero || b.Header.MerkleRoot != digest.Zero {
			t.Fatalf("\t%s\tShould have zero previous hash and merkle root.", failed)
		}
		t.Logf("\t%s\tShould have zero previous hash and merkle root.", success)

		if len(b.Transactions) != 1 || !b.Transactions[0].IsCoinbase() {
			t.Fatalf("\t%s\tShould hold exactly one coinbase.", failed)
		}
		out := b.Transactions[0].Outputs
		if len(out) != 1 || out[0].Amount != 100_000_000_000 || out[0].Recipient != (signature.PubKeyHash{}) {
			t.Fatalf("\t%s\tShould pay the reward to the burn address: %+v", failed, out)
		}
		t.Logf("\t%s\tShould hold one coinbase paying the burn address.", success)

		if b.Hash() != database.Genesis().Hash() {
			t.Fatalf("\t%s\tShould produce the same hash every time.", failed)
		}
		t.Logf("\t%s\tShould produce the same hash every time.", success)

		root := b.CalculateMerkleRoot()
		if root != b.Transactions[0].Hash() {
			t.Fatalf("\t%s\tShould use the single transaction hash as the merkle root.", failed)
		}
		t.Logf("\t%s\tShould use the single transaction hash as the merkle root.", success)
	}
}

func Test_HeaderEncoding(t *testing.T) {
	h := database.BlockHeader{
		Version:       2,
		PrevBlockHash: digest.Hash([]byte("prev")),
		MerkleRoot:    digest.Hash([]byte("root")),
		Timestamp:     1609459200,
		Bits:          0x1d00ffff,
		Nonce:         0x0102030405060708,
	}

	enc := h.Encode()
	if len(enc) != database.HeaderSize {
		t.Fatalf("\t%s\tShould encode the header in %d bytes, got %d", failed, database.HeaderSize, len(enc))
	}

	if binary.LittleEndian.Uint32(enc[0:4]) != 2 ||
		!bytes.Equal(enc[4:36], h.PrevBlockHash[:]) ||
		!bytes.Equal(enc[36:68], h.MerkleRoot[:]) ||
		binary.LittleEndian.Uint64(enc[68:76]) != 1609459200 ||
		binary.LittleEndian.Uint32(enc[76:80]) != 0x1d00ffff ||
		binary.LittleEndian.Uint64(enc[database.NonceOffset:]) != 0x0102030405060708 {
		t.Fatalf("\t%s\tShould lay out the fields in order, little-endian: %x", failed, enc)
	}
	t.Logf("\t%s\tShould lay out the fields in order, little-endian.", success)

	if h.Hash() != digest.DoubleHash(enc) {
		t.Fatalf("\t%s\tShould hash the header with the double hash.", failed)
	}

	h2 := h
	h2.Nonce++
	if h2.Hash() == h.Hash() {
		t.Fatalf("\t%s\tShould change the hash when the nonce changes.", failed)
	}
	t.Logf("\t%s\tShould change the hash when the nonce changes.", success)
}

func Test_CodecRoundTrip(t *testing.T) {
	pk := privateKey(t)

	b := database.Genesis()
	spend := database.Transaction{
		Version:  1,
		Inputs:   []database.TxInput{{PreviousOutput: b.Transactions[0].Hash(), OutputIndex: 0}},
		Outputs:  []database.TxOutput{{Amount: 7, Recipient: signature.ToPubKeyHash(pk.Public().(ed25519.PublicKey))}},
		Locktime: 99,
	}
	if err := spend.Sign(0, pk); err != nil {
		t.Fatalf("\t%s\tShould be able to sign: %v", failed, err)
	}
	b.Transactions = append(b.Transactions, spend)
	b.Header.MerkleRoot = b.CalculateMerkleRoot()

	data := database.EncodeBlock(b)
	if len(data) != b.Size() {
		t.Fatalf("\t%s\tShould report the encoded size, got %d exp %d", failed, b.Size(), len(data))
	}

	got, err := database.DecodeBlock(data)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode the block: %v", failed, err)
	}
	t.Logf("\t%s\tShould be able to decode the block.", success)

	if got.Hash() != b.Hash() || got.CalculateMerkleRoot() != b.Header.MerkleRoot {
		t.Fatalf("\t%s\tShould reproduce the same hash and merkle root.", failed)
	}
	t.Logf("\t%s\tShould reproduce the same hash and merkle root.", success)

	if !bytes.Equal(database.EncodeBlock(got), data) {
		t.Fatalf("\t%s\tShould re-encode to the same bytes.", failed)
	}

	if err := got.Transactions[1].VerifySignatures(); err != nil {
		t.Fatalf("\t%s\tShould keep the signatures valid: %v", failed, err)
	}
	t.Logf("\t%s\tShould keep the signatures valid.", success)

	tx, err := database.DecodeTransaction(spend.Encode())
	if err != nil || tx.Hash() != spend.Hash() {
		t.Fatalf("\t%s\tShould round trip a single transaction: %v", failed, err)
	}
}

func Test_DecodeMalformed(t *testing.T) {
	data := database.EncodeBlock(database.Genesis())

	tt := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", data[:40]},
		{"truncated", data[:len(data)-1]},
		{"trailing", append(append([]byte(nil), data...), 0)},
		{"huge count", func() []byte {
			b := append([]byte(nil), data[:database.HeaderSize]...)
			return binary.LittleEndian.AppendUint64(b, 1<<40)
		}()},
	}

	for _, tst := range tt {
		if _, err := database.DecodeBlock(tst.data); !errors.Is(err, database.ErrMalformed) {
			t.Errorf("\t%s\tShould reject %s input: %v", failed, tst.name, err)
			continue
		}
		t.Logf("\t%s\tShould reject %s input.", success, tst.name)
	}
}

func Test_Coinbase(t *testing.T) {
	var pkh signature.PubKeyHash
	pkh[3] = 7

	tx1 := database.NewCoinbase(pkh, 50, 1)
	tx2 := database.NewCoinbase(pkh, 50, 2)

	if !tx1.IsCoinbase() {
		t.Fatalf("\t%s\tShould be a coinbase.", failed)
	}
	if tx1.Hash() == tx2.Hash() {
		t.Fatalf("\t%s\tShould differ between heights.", failed)
	}
	if err := tx1.VerifySignatures(); err != nil {
		t.Fatalf("\t%s\tShould not need signatures: %v", failed, err)
	}
	t.Logf("\t%s\tShould build unique unsigned coinbase transactions.", success)

	notCoinbase := tx1
	notCoinbase.Inputs = []database.TxInput{{PreviousOutput: digest.Zero, OutputIndex: 0}}
	if notCoinbase.IsCoinbase() {
		t.Fatalf("\t%s\tShould require the coinbase index.", failed)
	}

	twoInputs := tx1
	twoInputs.Inputs = append(append([]database.TxInput(nil), tx1.Inputs...), tx1.Inputs[0])
	if twoInputs.IsCoinbase() {
		t.Fatalf("\t%s\tShould require exactly one input.", failed)
	}
	t.Logf("\t%s\tShould recognise only the coinbase pattern.", success)
}

func Test_Signatures(t *testing.T) {
	pk := privateKey(t)

	tx := database.Transaction{
		Version: 1,
		Inputs: []database.TxInput{
			{PreviousOutput: digest.Hash([]byte("a")), OutputIndex: 1},
			{PreviousOutput: digest.Hash([]byte("b")), OutputIndex: 2},
		},
		Outputs: []database.TxOutput{{Amount: 5}},
	}

	if err := tx.VerifySignatures(); err == nil {
		t.Fatalf("\t%s\tShould fail before signing.", failed)
	}

	for i := range tx.Inputs {
		if err := tx.Sign(i, pk); err != nil {
			t.Fatalf("\t%s\tShould be able to sign input %d: %v", failed, i, err)
		}
	}

	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("\t%s\tShould verify every input: %v", failed, err)
	}
	t.Logf("\t%s\tShould verify every signed input.", success)

	tx.Outputs[0].Amount = 6
	if err := tx.VerifySignatures(); err == nil {
		t.Fatalf("\t%s\tShould fail after the outputs change.", failed)
	}
	t.Logf("\t%s\tShould fail after the outputs change.", success)
}

func Test_Clone(t *testing.T) {
	b := database.Genesis()
	c := b.Clone()

	c.Header.Nonce = 42
	c.Transactions[0].Outputs[0].Amount = 1
	c.Transactions[0].Inputs[0].PublicKey[0] = 0xff

	if b.Header.Nonce != 0 || b.Transactions[0].Outputs[0].Amount != 100_000_000_000 || b.Transactions[0].Inputs[0].PublicKey[0] != 0 {
		t.Fatalf("\t%s\tShould not share state with the clone.", failed)
	}
	t.Logf("\t%s\tShould not share state with the clone.", success)
}

func Test_ValidateBlock(t *testing.T) {
	gen := genesis.Default()

	prev := database.NewGenesisBlock(gen)
	prev.Header.MerkleRoot = prev.CalculateMerkleRoot()

	ev := func(v string, args ...any) {}

	block := nextBlock(prev, 1)
	block.Header.Bits = 0x1f7fffff
	block.Header.MerkleRoot = block.CalculateMerkleRoot()
	for !block.MeetsDifficultyTarget() {
		block.Header.Nonce++
	}

	if err := block.ValidateBlock(prev, 0x1f7fffff, gen.MaxBlockSize, ev); err != nil {
		t.Fatalf("\t%s\tShould accept a valid block: %v", failed, err)
	}
	t.Logf("\t%s\tShould accept a valid block.", success)

	if err := block.ValidateBlock(prev, 0x1f0fffff, gen.MaxBlockSize, ev); err == nil {
		t.Fatalf("\t%s\tShould reject unexpected bits.", failed)
	}

	other := block
	other.Header.PrevBlockHash = digest.Hash([]byte("fork"))
	if err := other.ValidateBlock(prev, 0x1f7fffff, gen.MaxBlockSize, ev); !errors.Is(err, database.ErrChainForked) {
		t.Fatalf("\t%s\tShould reject the wrong parent as a fork: %v", failed, err)
	}

	stale := block
	stale.Header.Timestamp = prev.Header.Timestamp
	if err := stale.ValidateBlock(prev, 0x1f7fffff, gen.MaxBlockSize, ev); err == nil {
		t.Fatalf("\t%s\tShould reject a timestamp that does not move forward.", failed)
	}

	tampered := block.Clone()
	tampered.Transactions[0].Outputs[0].Amount++
	if err := tampered.ValidateBlock(prev, 0x1f7fffff, gen.MaxBlockSize, ev); err == nil {
		t.Fatalf("\t%s\tShould reject transactions that don't match the merkle root.", failed)
	}
	t.Logf("\t%s\tShould reject invalid blocks.", success)
}

func Test_BlockJSON(t *testing.T) {
	b := database.Genesis()
	b.Header.MerkleRoot = b.CalculateMerkleRoot()

	data, err := json.Marshal(database.NewBlockData(0, b))
	if err != nil {
		t.Fatalf("\t%s\tShould be able to marshal the block: %v", failed, err)
	}

	var got database.BlockData
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("\t%s\tShould be able to unmarshal the block: %v", failed, err)
	}

	if got.Hash != b.Hash() || got.Block.Hash() != b.Hash() {
		t.Fatalf("\t%s\tShould keep the block hash through JSON.", failed)
	}
	t.Logf("\t%s\tShould keep the block hash through JSON.", success)
}
