package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphermesh/internal/session"
)

func initCmd() *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a new identity and store it in the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if nickname == "" {
				return fmt.Errorf("nickname required (--nickname)")
			}

			s, err := session.New(home, nickname)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Save([]byte(passphrase)); err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", s.Identity.Fingerprint())
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname used to identify this session on the relay")
	return cmd
}
