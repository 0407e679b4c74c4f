package cmd

import (
	"fmt"

	"github.com/ardanlabs/nullchain/foundation/blockchain/difficulty"
	"github.com/spf13/cobra"
)

func difficultyCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "difficulty",
		Short: "Compact difficulty helpers",
	}

	var bitsFlag string

	targetCmd := cobra.Command{
		Use:   "target",
		Short: "Expand compact bits into the full target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, err := difficulty.ParseBits(bitsFlag)
			if err != nil {
				return err
			}

			target, err := difficulty.BitsToTarget(bits)
			if err != nil {
				return err
			}

			c := difficulty.FromBits(bits)

			w := cmd.ErrOrStderr()
			field(w, "bits", cyan(c))
			field(w, "exponent", c.Exponent)
			field(w, "mantissa", fmt.Sprintf("0x%06x", c.Mantissa))

			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	targetCmd.Flags().StringVarP(&bitsFlag, "bits", "b", "", "Difficulty bits in hex (0x...) or decimal.")
	targetCmd.MarkFlagRequired("bits")

	var (
		adjBits string
		actual  uint64
		target  uint64
	)

	adjustCmd := cobra.Command{
		Use:   "adjust",
		Short: "Compute the bits for the next epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, err := difficulty.ParseBits(adjBits)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("target") {
				target = difficulty.CalculateTargetTime(difficulty.AdjustmentInterval)
			}

			newBits, err := difficulty.Adjust(bits, actual, target)
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			field(w, "old", cyan(difficulty.FromBits(bits)))
			field(w, "actual", fmt.Sprintf("%ds", actual))
			field(w, "target", fmt.Sprintf("%ds", target))
			field(w, "new", green(difficulty.FromBits(newBits)))

			fmt.Fprintln(cmd.OutOrStdout(), difficulty.FromBits(newBits))
			return nil
		},
	}
	adjustCmd.Flags().StringVarP(&adjBits, "bits", "b", "", "Current difficulty bits in hex (0x...) or decimal.")
	adjustCmd.Flags().Uint64Var(&actual, "actual", 0, "Seconds the last epoch took.")
	adjustCmd.Flags().Uint64Var(&target, "target", 0, "Seconds the epoch should take, defaults to a full epoch.")
	adjustCmd.MarkFlagRequired("bits")
	adjustCmd.MarkFlagRequired("actual")

	cmd.AddCommand(&targetCmd, &adjustCmd)

	return &cmd
}
