// Package cmd contains the nullchain commands.
package cmd

import (
	"fmt"
	"io"

	"github.com/ardanlabs/nullchain/foundation/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// New constructs the root command with every sub command attached.
func New(build string) *cobra.Command {
	var verbose bool

	root := cobra.Command{
		Use:           "nullchain",
		Short:         "Minimal proof of work chain",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log chain events to stderr.")

	// The chain packages report through an event handler. Only verbose runs
	// route those events to the logger.
	ev := func(v string, args ...any) {}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}

		log, err := logger.New("NULLCHAIN", "stderr")
		if err != nil {
			return err
		}
		ev = eventLogger(log)

		return nil
	}
	evHandler := func(v string, args ...any) { ev(v, args...) }

	root.AddCommand(
		genesisCmd(),
		mineCmd(),
		infoCmd(),
		versionCmd(build),
		chainCmd(evHandler),
		difficultyCmd(),
		walletCmd(),
	)

	return &root
}

// Execute runs the command and reports any error on stderr so every command
// fails the same way.
func Execute(root *cobra.Command) error {
	cmd, err := root.ExecuteC()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", red("error"), err)
	}
	return err
}

func eventLogger(log *zap.SugaredLogger) func(v string, args ...any) {
	return func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}
}

// field writes an aligned "name: value" line used by the summaries.
func field(w io.Writer, name string, value any) {
	fmt.Fprintf(w, "  %-11s %v\n", name+":", value)
}
