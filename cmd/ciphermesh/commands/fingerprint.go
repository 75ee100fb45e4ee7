package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphermesh/internal/session"
)

func fingerprintCmd() *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the local identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			s, err := session.Unlock(home, nickname, []byte(passphrase))
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Printf("Fingerprint: %s\n", s.Identity.Fingerprint())
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname this identity was created with")
	return cmd
}
