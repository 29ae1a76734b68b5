package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"caesarwheel/internal/cipher"
)

func shiftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shift <n>",
		Short: "Select a shift on the running wheel (clamped to 0-25)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid shift %q: %w", args[0], err)
			}
			return sendOne("set_shift", setShift{Shift: n, Origin: "wheel-ctl"})
		},
	}
}

func stepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step <delta>",
		Short: "Move the running wheel by delta detents, wrapping around",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[0], err)
			}
			return sendOne("step_shift", stepShift{Delta: d})
		},
	}
}

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mode <encrypt|decrypt|toggle>",
		Short: "Set or toggle the wheel's mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.EqualFold(args[0], "toggle") {
				return sendOne("toggle_mode", nil)
			}
			m, err := cipher.ParseMode(args[0])
			if err != nil {
				return err
			}
			return sendOne("set_mode", setMode{Mode: m.String()})
		},
	}
}

func inputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "input [text...]",
		Short: "Replace the wheel's message text (stdin when no args)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			return sendOne("set_input", setInput{Text: text})
		},
	}
}

func copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy",
		Short: "Ask the wheel to copy its output to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendOne("copy_output", nil)
		},
	}
}
