package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	home       string
	passphrase string
	relayURL   string
)

// Execute builds and runs the ciphermesh root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "ciphermesh",
		Short: "End-to-end encrypted LAN chat CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".ciphermesh")
			}
			return os.MkdirAll(home, 0o700)
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.ciphermesh)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the state vault")
	root.PersistentFlags().StringVar(&relayURL, "relay", "http://127.0.0.1:8080", "relay base URL")

	root.AddCommand(
		initCmd(),
		rotateCmd(),
		fingerprintCmd(),
		trustCmd(),
		sasCmd(),
		joinCmd(),
		sendCmd(),
		recvCmd(),
	)
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
