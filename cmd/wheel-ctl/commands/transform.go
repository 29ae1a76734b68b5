package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"caesarwheel/internal/cipher"
)

// readText joins args, or reads all of stdin when there are none.
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func transformCmd(use, short string, mode cipher.Mode) *cobra.Command {
	var shift int
	cmd := &cobra.Command{
		Use:   use + " [text...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cipher.Transform(text, shift, mode))
			return nil
		},
	}
	cmd.Flags().IntVarP(&shift, "shift", "s", 3, "Caesar shift (any integer; reduced mod 26)")
	return cmd
}

// encrypt [text...]: offline, no daemon needed.
func encryptCmd() *cobra.Command {
	return transformCmd("encrypt", "Encrypt text with a Caesar shift", cipher.Encrypt)
}

// decrypt [text...]: offline, no daemon needed.
func decryptCmd() *cobra.Command {
	return transformCmd("decrypt", "Decrypt text with a Caesar shift", cipher.Decrypt)
}

// crack [text...]: print all 26 decryptions, one per line.
func crackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crack [text...]",
		Short: "List every possible decryption of a ciphertext",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			for _, c := range cipher.Candidates(text) {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", c.Shift, c.Text)
			}
			return nil
		},
	}
}
