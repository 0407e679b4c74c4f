package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/nullchain/foundation/blockchain/pow"
	"github.com/spf13/cobra"
)

// DefaultMineBits is a difficulty a single core solves in a moment.
const DefaultMineBits = "0x1f0fffff"

func genesisCmd() *cobra.Command {
	var genesisFile string

	cmd := cobra.Command{
		Use:   "genesis",
		Short: "Create and display the genesis block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, err := loadGenesis(genesisFile)
			if err != nil {
				return err
			}

			block := database.NewGenesisBlock(gen)
			block.Header.MerkleRoot = block.CalculateMerkleRoot()

			w := cmd.ErrOrStderr()
			fmt.Fprintln(w, "Genesis block")
			field(w, "version", block.Header.Version)
			field(w, "timestamp", block.Header.Timestamp)
			field(w, "difficulty", cyan(difficulty.FromBits(block.Header.Bits)))
			field(w, "merkle", block.Header.MerkleRoot)
			field(w, "hash", green(block.Hash()))

			return writeJSON(cmd.OutOrStdout(), block)
		},
	}

	cmd.Flags().StringVarP(&genesisFile, "genesis", "g", "", "Path to a genesis file, defaults to the main chain.")

	return &cmd
}

func mineCmd() *cobra.Command {
	var (
		iterations uint64
		bitsFlag   string
		every      uint64
	)

	cmd := cobra.Command{
		Use:   "mine",
		Short: "Mine the genesis template at the specified difficulty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, err := difficulty.ParseBits(bitsFlag)
			if err != nil {
				return err
			}

			if _, err := difficulty.BitsToTarget(bits); err != nil {
				return err
			}

			block := database.Genesis()
			block.Header.Bits = bits
			block.Header.MerkleRoot = block.CalculateMerkleRoot()

			w := cmd.ErrOrStderr()
			fmt.Fprintln(w, "Mining block")
			field(w, "difficulty", cyan(difficulty.FromBits(bits)))
			if iterations > 0 {
				field(w, "max_iter", iterations)
			}

			opts := []pow.Option{
				pow.WithProgress(every, func(p pow.Progress) {
					fmt.Fprintf(w, "  %s attempts[%d] nonce[%d] rate[%.0f H/s]\n", faint("progress"), p.Attempts, p.Nonce, p.HashRate)
				}),
			}
			if iterations > 0 {
				opts = append(opts, pow.WithMaxIterations(iterations))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			start := time.Now()
			res, found, err := pow.Mine(ctx, block, opts...)
			if err != nil {
				return err
			}

			if !found {
				fmt.Fprintln(w, red("Mining failed: no solution found"))
				return fmt.Errorf("no solution found in %d attempts", res.Attempts)
			}

			elapsed := time.Since(start)
			rate := float64(res.Attempts) / elapsed.Seconds()

			fmt.Fprintln(w, green("Block mined"))
			field(w, "nonce", res.Block.Header.Nonce)
			field(w, "hash", green(res.Hash))
			field(w, "time", fmt.Sprintf("%.3fs", elapsed.Seconds()))
			field(w, "hashrate", fmt.Sprintf("%.0f H/s", rate))

			return writeJSON(cmd.OutOrStdout(), res.Block)
		},
	}

	cmd.Flags().Uint64VarP(&iterations, "iterations", "i", 0, "Maximum attempts, zero searches the whole nonce space.")
	cmd.Flags().StringVarP(&bitsFlag, "bits", "b", DefaultMineBits, "Difficulty bits in hex (0x...) or decimal.")
	cmd.Flags().Uint64Var(&every, "progress", 1_000_000, "Attempts between progress lines, zero disables them.")

	return &cmd
}

// blockInfo is the machine readable summary written by info.
type blockInfo struct {
	Version   uint32 `json:"version"`
	Timestamp uint64 `json:"timestamp"`
	Bits      string `json:"bits"`
	Nonce     uint64 `json:"nonce"`
	TxCount   int    `json:"tx_count"`
	Hash      string `json:"hash"`
	Valid     bool   `json:"valid"`
}

func infoCmd() *cobra.Command {
	var blockJSON string

	cmd := cobra.Command{
		Use:   "info",
		Short: "Display information about a block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := blockJSON
			if data == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				data = string(b)
			}

			var block database.Block
			if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &block); err != nil {
				return fmt.Errorf("invalid block data: %w", err)
			}

			info := blockInfo{
				Version:   block.Header.Version,
				Timestamp: block.Header.Timestamp,
				Bits:      difficulty.FromBits(block.Header.Bits).String(),
				Nonce:     block.Header.Nonce,
				TxCount:   len(block.Transactions),
				Hash:      block.Hash().String(),
				Valid:     pow.Verify(block),
			}

			valid := red("false")
			if info.Valid {
				valid = green("true")
			}

			w := cmd.ErrOrStderr()
			fmt.Fprintln(w, "Block information")
			field(w, "version", info.Version)
			field(w, "timestamp", info.Timestamp)
			field(w, "difficulty", cyan(info.Bits))
			field(w, "nonce", info.Nonce)
			field(w, "txs", info.TxCount)
			field(w, "hash", green(info.Hash))
			field(w, "valid", valid)

			return writeJSON(cmd.OutOrStdout(), info)
		},
	}

	cmd.Flags().StringVarP(&blockJSON, "json", "j", "", "Block in JSON format, - reads it from stdin.")
	cmd.MarkFlagRequired("json")

	return &cmd
}

// =============================================================================

func loadGenesis(path string) (genesis.Genesis, error) {
	if path == "" {
		return genesis.Default(), nil
	}

	gen, err := genesis.Load(path)
	if err != nil {
		return genesis.Genesis{}, fmt.Errorf("loading genesis: %w", err)
	}

	return gen, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
