package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/nullchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// minPassphrase is the length below which a passphrase draws a warning.
const minPassphrase = 8

func walletCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "wallet",
		Short: "Manage wallet keys",
	}

	var outDir string

	keygenCmd := cobra.Command{
		Use:   "keygen",
		Short: "Generate a new key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := signature.GenerateKey()
			if err != nil {
				return err
			}

			w := cmd.ErrOrStderr()
			fmt.Fprintln(w, "Generated new keypair")
			field(w, "address", cyan(signature.Address(pub)))
			fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(pub))

			if outDir == "" {
				return nil
			}

			passphrase, err := readPassphrase(cmd.InOrStdin(), w)
			if err != nil {
				return err
			}

			if len(passphrase) < minPassphrase {
				fmt.Fprintln(w, yellow(fmt.Sprintf("warning: weak passphrase (minimum %d characters recommended)", minPassphrase)))
			}

			if err := signature.SaveKeyPair(outDir, priv, passphrase); err != nil {
				return err
			}

			fmt.Fprintf(w, "Saved to %s\n", cyan(outDir))
			field(w, "public", filepath.Join(outDir, signature.PublicKeyFile))
			field(w, "private", filepath.Join(outDir, signature.PrivateKeyFile)+" (encrypted)")

			return nil
		},
	}
	keygenCmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write the encrypted key pair to.")

	var pubKeyFile string

	addressCmd := cobra.Command{
		Use:   "address",
		Short: "Print the address for a public key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := signature.LoadPublicKey(pubKeyFile)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signature.Address(pub))
			return nil
		},
	}
	addressCmd.Flags().StringVarP(&pubKeyFile, "pubkey", "p", "", "Path to the public key file.")
	addressCmd.MarkFlagRequired("pubkey")

	cmd.AddCommand(&keygenCmd, &addressCmd)

	return &cmd
}

// readPassphrase reads the passphrase without echo when stdin is a terminal
// and as a single line otherwise.
func readPassphrase(in io.Reader, prompt io.Writer) ([]byte, error) {
	fmt.Fprint(prompt, "Enter passphrase: ")

	var passphrase []byte
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		passphrase = b
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		passphrase = []byte(strings.TrimRight(line, "\r\n"))
	}

	if len(passphrase) == 0 {
		return nil, errors.New("empty passphrase")
	}

	return passphrase, nil
}
