package cmd

import (
	"fmt"
	"runtime"

	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/nullchain/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

func versionCmd(build string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := genesis.Default()
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "%s %s\n\n", cyan("nullchain"), yellow(build))
			fmt.Fprintf(w, "%s: %s\n", faint("Go"), runtime.Version())
			fmt.Fprintf(w, "%s: %s/%s\n", faint("Platform"), runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "%s: %s\n", faint("Consensus"), "Proof-of-Work (double blake3)")
			fmt.Fprintf(w, "%s: %s\n", faint("Signature Scheme"), "Ed25519")
			fmt.Fprintf(w, "%s: %d seconds\n", faint("Block Time"), difficulty.BlockTime)
			fmt.Fprintf(w, "%s: %d blocks\n", faint("Adjustment"), gen.AdjustmentInterval)
			fmt.Fprintf(w, "%s: %d\n", faint("Block Reward"), gen.MiningReward)

			return nil
		},
	}
}
