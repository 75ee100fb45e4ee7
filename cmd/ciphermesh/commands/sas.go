package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ciphermesh/internal/session"
	"ciphermesh/internal/trust"
)

func sasCmd() *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "sas <peer-nickname>",
		Short: "Print the Short Authentication String to verify a peer out of band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			s, err := session.Unlock(home, nickname, []byte(passphrase))
			if err != nil {
				return err
			}
			defer s.Close()

			ts, err := trust.Open(filepath.Join(home, trust.DefaultPath))
			if err != nil {
				return err
			}
			rec, ok := ts.Get(args[0])
			if !ok {
				return fmt.Errorf("no trust record for %q; join a session with them first", args[0])
			}

			fmt.Printf("SAS: %s\n", trust.SAS(s.Identity.Public(), rec.PublicKey))
			fmt.Println("Read this code aloud with your peer over a channel you trust; it must match on both sides.")
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname this identity was created with")
	return cmd
}
