package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/nullchain/foundation/blockchain/database"
	"github.com/ardanlabs/nullchain/foundation/blockchain/digest"
	"github.com/ardanlabs/nullchain/foundation/blockchain/state"
	"github.com/ardanlabs/nullchain/foundation/blockchain/storage/leveldb"
	"github.com/spf13/cobra"
)

func chainCmd(ev func(v string, args ...any)) *cobra.Command {
	var (
		dataDir     string
		genesisFile string
	)

	cmd := cobra.Command{
		Use:   "chain",
		Short: "Inspect a local chain database",
	}

	cmd.PersistentFlags().StringVarP(&dataDir, "datadir", "d", "zblock/chain.db", "Path to the chain database.")
	cmd.PersistentFlags().StringVarP(&genesisFile, "genesis", "g", "", "Path to a genesis file, defaults to the main chain.")

	// open only opens databases that already exist unless create is set.
	open := func(create bool) (*state.State, error) {
		if !create {
			if _, err := os.Stat(dataDir); err != nil {
				return nil, fmt.Errorf("database not found at %s", dataDir)
			}
		}

		gen, err := loadGenesis(genesisFile)
		if err != nil {
			return nil, err
		}

		ldb, err := leveldb.New(dataDir, ev)
		if err != nil {
			return nil, err
		}

		db := database.New(gen, ldb, ev)

		// Read only commands must not write the genesis block.
		if !create {
			empty, err := db.IsEmpty()
			if err != nil {
				db.Close()
				return nil, err
			}
			if empty {
				db.Close()
				return nil, fmt.Errorf("chain not initialized at %s, run chain init", dataDir)
			}
		}

		st, err := state.New(state.Config{
			DB:        db,
			EvHandler: ev,
		})
		if err != nil {
			db.Close()
			return nil, err
		}

		return st, nil
	}

	// =========================================================================

	initCmd := cobra.Command{
		Use:   "init",
		Short: "Create a chain database holding the genesis block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(true)
			if err != nil {
				return err
			}
			defer st.Shutdown()

			gb, err := st.BlockByHeight(0)
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			fmt.Fprintln(w, "Chain initialized")
			field(w, "datadir", cyan(dataDir))
			field(w, "genesis", green(gb.Hash))
			field(w, "height", st.Tip().Height)

			return nil
		},
	}

	tipCmd := cobra.Command{
		Use:   "info",
		Short: "Display the chain tip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(false)
			if err != nil {
				return err
			}
			defer st.Shutdown()

			tip := st.Tip()

			w := cmd.ErrOrStderr()
			fmt.Fprintln(w, "Chain information")
			field(w, "height", tip.Height)
			field(w, "best", green(tip.Hash))
			field(w, "timestamp", tip.Header.Timestamp)
			field(w, "txs", len(tip.Transactions))

			return writeJSON(cmd.OutOrStdout(), struct {
				Height    uint64        `json:"height"`
				Best      digest.Digest `json:"best"`
				Timestamp uint64        `json:"timestamp"`
				TxCount   int           `json:"tx_count"`
			}{
				Height:    tip.Height,
				Best:      tip.Hash,
				Timestamp: tip.Header.Timestamp,
				TxCount:   len(tip.Transactions),
			})
		},
	}

	var (
		height uint64
		hash   string
	)

	blockCmd := cobra.Command{
		Use:   "block",
		Short: "Print a stored block by height or hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			byHeight := cmd.Flags().Changed("height")
			if byHeight == (hash != "") {
				return errors.New("exactly one of --height or --hash is required")
			}

			st, err := open(false)
			if err != nil {
				return err
			}
			defer st.Shutdown()

			var bd database.BlockData
			switch {
			case byHeight:
				bd, err = st.BlockByHeight(height)
			default:
				var h digest.Digest
				if h, err = digest.FromHex(hash); err == nil {
					bd, err = st.BlockByHash(h)
				}
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), bd)
		},
	}

	blockCmd.Flags().Uint64Var(&height, "height", 0, "Height of the block.")
	blockCmd.Flags().StringVar(&hash, "hash", "", "Hash of the block in hex.")

	cmd.AddCommand(&initCmd, &tipCmd, &blockCmd)

	return &cmd
}
