package pow_test

import (
	"context"
	"testing"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/pow"
	"github.com/stretchr/testify/require"
)

const (
	easyBits = 0x1f0fffff
	hardBits = 0x03000001
)

func template(bits uint32) database.Block {
	b := database.Genesis()
	b.Header.Bits = bits
	b.Header.MerkleRoot = b.CalculateMerkleRoot()

	return b
}

func Test_MineEasy(t *testing.T) {
	block := template(easyBits)

	res, found, err := pow.Mine(context.Background(), block, pow.WithMaxIterations(100_000))
	require.NoError(t, err)
	require.True(t, found, "easy target should be found within 100,000 attempts")

	require.True(t, pow.Verify(res.Block))
	require.Equal(t, res.Block.Hash(), res.Hash)
	require.Equal(t, res.Block.Header.Nonce+1, res.Attempts, "search should start at nonce 0")

	exp := block.Header
	exp.Nonce = res.Block.Header.Nonce
	require.Equal(t, exp, res.Block.Header, "only the nonce should change")
	require.Equal(t, block.CalculateMerkleRoot(), res.Block.CalculateMerkleRoot())
	require.Equal(t, uint64(0), block.Header.Nonce, "caller's block should not change")

	again, found, err := pow.Mine(context.Background(), block, pow.WithMaxIterations(100_000))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, res.Block.Header.Nonce, again.Block.Header.Nonce, "search should be deterministic")
}

func Test_VerifyHard(t *testing.T) {
	block := template(hardBits)
	require.False(t, pow.Verify(block))

	block.Header.Nonce = 12345
	require.False(t, pow.Verify(block))
}

func Test_Exhausted(t *testing.T) {
	block := template(hardBits)

	res, found, err := pow.Mine(context.Background(), block, pow.WithMaxIterations(1_000))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, uint64(1_000), res.Attempts)

	res, found, err = pow.Mine(context.Background(), block, pow.WithMaxIterations(0))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, uint64(0), res.Attempts)
}

func Test_NonceRange(t *testing.T) {
	block := template(easyBits)

	full, found, err := pow.Mine(context.Background(), block, pow.WithMaxIterations(100_000))
	require.NoError(t, err)
	require.True(t, found)

	start := full.Block.Header.Nonce + 1
	res, found, err := pow.Mine(context.Background(), block, pow.WithNonceRange(start, start+200_000))
	require.NoError(t, err)
	require.True(t, found)
	require.GreaterOrEqual(t, res.Block.Header.Nonce, start)
	require.True(t, pow.Verify(res.Block))

	res, found, err = pow.Mine(context.Background(), block, pow.WithNonceRange(10, 10))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, uint64(0), res.Attempts)
}

func Test_Cancel(t *testing.T) {
	block := template(hardBits)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, found, err := pow.Mine(ctx, block)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, found)
}

func Test_Progress(t *testing.T) {
	block := template(hardBits)

	var calls []pow.Progress
	fn := func(p pow.Progress) {
		calls = append(calls, p)
	}

	_, found, err := pow.Mine(context.Background(), block, pow.WithMaxIterations(1_000), pow.WithProgress(250, fn))
	require.NoError(t, err)
	require.False(t, found)

	require.Len(t, calls, 4)
	for i, p := range calls {
		require.Equal(t, uint64(250*(i+1)), p.Attempts)
		require.Equal(t, p.Attempts-1, p.Nonce)
	}
}

func Test_BadBits(t *testing.T) {
	block := template(0x20ffffff)

	_, found, err := pow.Mine(context.Background(), block, pow.WithMaxIterations(10))
	require.ErrorIs(t, err, difficulty.ErrExponentOverflow)
	require.False(t, found)
	require.False(t, pow.Verify(block))
}
