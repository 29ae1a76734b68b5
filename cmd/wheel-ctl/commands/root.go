package commands

import (
	"github.com/spf13/cobra"
)

const (
	defaultSocketPath = "/tmp/caesarwheel.sock"
	defaultServerURL  = "http://127.0.0.1:3030"
)

var (
	socketPath string
	serverURL  string
)

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wheel-ctl",
		Short:        "Control a running caesarwheel and transform text offline",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "daemon IPC socket path")
	root.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "daemon HTTP base URL (used by state)")

	root.AddCommand(
		encryptCmd(), decryptCmd(), crackCmd(),
		shiftCmd(), stepCmd(), modeCmd(), inputCmd(), copyCmd(), spinCmd(),
		stateCmd(),
	)
	return root
}
