package database_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
	"github.com/ardanlabs/nullchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/nullchain/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Storage(t *testing.T) {
	type table struct {
		name    string
		storage func(t *testing.T) database.Storage
	}

	tt := []table{
		{
			name: "memory",
			storage: func(t *testing.T) database.Storage {
				return memory.New()
			},
		},
		{
			name: "leveldb",
			storage: func(t *testing.T) database.Storage {
				ldb, err := leveldb.NewMemory()
				if err != nil {
					t.Fatalf("\t%s\tShould be able to open leveldb: %v", failed, err)
				}
				return ldb
			},
		},
	}

	t.Log("Given the need to store and read back the chain.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s storage.", testID, tst.name)
			{
				f := func(t *testing.T) {
					gen := genesis.Default()
					db := database.New(gen, tst.storage(t), nil)
					defer db.Close()

					empty, err := db.IsEmpty()
					if err != nil || !empty {
						t.Fatalf("\t%s\tTest %d:\tShould start with an empty chain: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould start with an empty chain.", success, testID)

					if _, _, err := db.Best(); !errors.Is(err, database.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould get not found for the tip of an empty chain: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get not found for the tip of an empty chain.", success, testID)

					block0 := database.NewGenesisBlock(gen)
					block0.Header.MerkleRoot = block0.CalculateMerkleRoot()
					if err := db.CommitBlock(0, block0); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to commit the genesis block: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to commit the genesis block.", success, testID)

					block1 := nextBlock(block0, 1)
					if err := db.PutBlock(1, block1); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to put block 1: %v", failed, testID, err)
					}

					hash, height, err := db.Best()
					if err != nil || height != 0 || hash != block0.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould keep the tip when putting a block: %d %s %v", failed, testID, height, hash, err)
					}
					t.Logf("\t%s\tTest %d:\tShould keep the tip when putting a block.", success, testID)

					if err := db.SetBest(1, block1.Hash()); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to set the tip: %v", failed, testID, err)
					}

					got, err := db.GetByHeight(1)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to get block 1 by height: %v", failed, testID, err)
					}
					if got.Hash() != block1.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould get back the same block by height.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the same block by height.", success, testID)

					got, err = db.GetByHash(block0.Hash())
					if err != nil || got.Hash() != block0.Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould get back the genesis block by hash: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the genesis block by hash.", success, testID)

					if _, err := db.GetByHeight(7); !errors.Is(err, database.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould get not found for a missing height: %v", failed, testID, err)
					}
					if _, err := db.GetByHash(digest.Hash([]byte("missing"))); !errors.Is(err, database.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould get not found for a missing hash: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get not found for missing blocks.", success, testID)

					var heights []uint64
					iter := db.ForEach()
					for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to iterate: %v", failed, testID, err)
						}
						if block.Header.PrevBlockHash != digest.Zero && iter.Height() == 0 {
							t.Fatalf("\t%s\tTest %d:\tShould start iterating at genesis.", failed, testID)
						}
						heights = append(heights, iter.Height())
					}
					if len(heights) != 2 || heights[0] != 0 || heights[1] != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould iterate heights 0 and 1, got %v", failed, testID, heights)
					}
					t.Logf("\t%s\tTest %d:\tShould iterate every block up to the tip.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_SpendableOutputs(t *testing.T) {
	t.Log("Given the need to track spendable outputs.")
	{
		t.Logf("\tTest 0:\tWhen committing blocks.")
		{
			gen := genesis.Default()
			db := database.New(gen, memory.New(), nil)

			block0 := database.NewGenesisBlock(gen)
			block0.Header.MerkleRoot = block0.CalculateMerkleRoot()
			if err := db.CommitBlock(0, block0); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to commit the genesis block: %v", failed, err)
			}

			coinbase := block0.Transactions[0]
			op := database.OutPoint{TxID: coinbase.Hash(), Index: 0}

			so, err := db.GetOutput(op)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould find the genesis coinbase output: %v", failed, err)
			}
			if so.Output.Amount != gen.MiningReward || !so.Coinbase || so.Height != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould record the coinbase output: %+v", failed, so)
			}
			t.Logf("\t%s\tTest 0:\tShould record the coinbase output.", success)

			if db.IsMature(so, gen.CoinbaseMaturity-1) || !db.IsMature(so, gen.CoinbaseMaturity) {
				t.Fatalf("\t%s\tTest 0:\tShould apply the coinbase maturity.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould apply the coinbase maturity.", success)

			spend := database.Transaction{
				Version: 1,
				Inputs:  []database.TxInput{{PreviousOutput: op.TxID, OutputIndex: op.Index}},
				Outputs: []database.TxOutput{{Amount: 10}},
			}

			block1 := nextBlock(block0, 1)
			block1.Transactions = append(block1.Transactions, spend)
			block1.Header.MerkleRoot = block1.CalculateMerkleRoot()

			if err := db.CommitBlock(1, block1); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to commit block 1: %v", failed, err)
			}

			if ok, _ := db.HasOutput(op); ok {
				t.Fatalf("\t%s\tTest 0:\tShould remove the spent output.", failed)
			}
			if _, err := db.GetOutput(op); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest 0:\tShould get not found for the spent output: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould remove the spent output.", success)

			newOp := database.OutPoint{TxID: spend.Hash(), Index: 0}
			if ok, _ := db.HasOutput(newOp); !ok {
				t.Fatalf("\t%s\tTest 0:\tShould add the new output.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould add the new output.", success)

			if err := db.RemoveOutput(newOp); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to remove an output: %v", failed, err)
			}
			if err := db.AddOutput(newOp, database.SpendableOutput{Output: database.TxOutput{Amount: 3}, Height: 9}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to add an output: %v", failed, err)
			}
			if so, err := db.GetOutput(newOp); err != nil || so.Output.Amount != 3 || so.Height != 9 {
				t.Fatalf("\t%s\tTest 0:\tShould read back the added output: %+v %v", failed, so, err)
			}
			t.Logf("\t%s\tTest 0:\tShould add and remove outputs directly.", success)
		}
	}
}

func Test_BlockTooLarge(t *testing.T) {
	gen := genesis.Default()
	gen.MaxBlockSize = database.HeaderSize + 8

	db := database.New(gen, memory.New(), nil)

	err := db.PutBlock(0, database.NewGenesisBlock(gen))
	if !errors.Is(err, database.ErrBlockTooLarge) {
		t.Fatalf("\t%s\tShould reject a block over the size limit: %v", failed, err)
	}
	t.Logf("\t%s\tShould reject a block over the size limit.", success)
}

// =============================================================================

func nextBlock(prev database.Block, height uint64) database.Block {
	var miner signature.PubKeyHash
	miner[0] = 0x01

	block := database.Block{
		Header: database.BlockHeader{
			Version:       1,
			PrevBlockHash: prev.Hash(),
			Timestamp:     prev.Header.Timestamp + 600,
			Bits:          prev.Header.Bits,
		},
		Transactions: []database.Transaction{
			database.NewCoinbase(miner, 50, height),
		},
	}
	block.Header.MerkleRoot = block.CalculateMerkleRoot()

	return block
}

func privateKey(t *testing.T) ed25519.PrivateKey {
	seed, err := hex.DecodeString("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode the seed: %v", failed, err)
	}

	return ed25519.NewKeyFromSeed(seed)
}
