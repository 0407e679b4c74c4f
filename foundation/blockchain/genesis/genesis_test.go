package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(`{"bits": 520159231, "mining_reward": 50}`), 0o644); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}

	if gen.Bits != 0x1f0fffff {
		t.Errorf("Should override the bits, got %#x", gen.Bits)
	}
	if gen.MiningReward != 50 {
		t.Errorf("Should override the reward, got %d", gen.MiningReward)
	}
	if gen.Timestamp != genesis.Default().Timestamp {
		t.Errorf("Should keep the default timestamp, got %d", gen.Timestamp)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"halving_interval": 0}`), 0o644); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}
	if _, err := genesis.Load(bad); err == nil {
		t.Errorf("Should reject a zero halving interval.")
	}
}

func Test_BlockReward(t *testing.T) {
	gen := genesis.Default()

	tt := []struct {
		height uint64
		exp    uint64
	}{
		{0, 100_000_000_000},
		{209_999, 100_000_000_000},
		{210_000, 50_000_000_000},
		{420_000, 25_000_000_000},
		{210_000 * 64, 0},
	}

	for _, tst := range tt {
		if got := gen.BlockReward(tst.height); got != tst.exp {
			t.Errorf("Should get reward %d at height %d, got %d", tst.exp, tst.height, got)
		}
	}
}

func Test_BlockRewardNoHalving(t *testing.T) {
	gen := genesis.Default()
	gen.HalvingInterval = 0

	for _, height := range []uint64{0, 1, 210_000, 1 << 40} {
		if got := gen.BlockReward(height); got != gen.MiningReward {
			t.Errorf("Should pay the full reward at height %d without halvings, got %d", height, got)
		}
	}
}
