package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/trust"
)

func trustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect, list, update, or verify peer trust records",
	}
	cmd.AddCommand(trustListCmd(), trustShowCmd(), trustUpdateCmd(), trustVerifyConfirmCmd())
	return cmd
}

func openTrustStore() (*trust.Store, error) {
	return trust.Open(filepath.Join(home, trust.DefaultPath))
}

func trustListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every peer the trust store has a record for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTrustStore()
			if err != nil {
				return err
			}
			for _, nickname := range ts.Nicknames() {
				rec, ok := ts.Get(nickname)
				if !ok {
					continue
				}
				fmt.Printf("%-20s %-40s verified=%-5v last-seen=%s\n", rec.Nickname, rec.Fingerprint, rec.Verified, rec.LastSeen.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func trustShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <peer-nickname>",
		Short: "Print a peer's trust record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTrustStore()
			if err != nil {
				return err
			}
			rec, ok := ts.Get(args[0])
			if !ok {
				return fmt.Errorf("no trust record for %q", args[0])
			}
			fmt.Printf("Nickname:    %s\n", rec.Nickname)
			fmt.Printf("Fingerprint: %s\n", rec.Fingerprint)
			fmt.Printf("Verified:    %v\n", rec.Verified)
			fmt.Printf("First seen:  %s\n", rec.FirstSeen)
			fmt.Printf("Last seen:   %s\n", rec.LastSeen)
			return nil
		},
	}
}

func trustUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <peer-nickname> <base64-public-key>",
		Short: "Manually accept a peer's changed key after confirming it out of band, clearing verified",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTrustStore()
			if err != nil {
				return err
			}
			raw, err := crypto.FromB64(args[1])
			if err != nil || len(raw) != 32 {
				return fmt.Errorf("public key must be a base64-encoded 32-byte key")
			}
			pub := domain.MustX25519Public(raw)
			if err := ts.Update(args[0], pub); err != nil {
				return err
			}
			fmt.Printf("%s's trust record updated; verified cleared until the new SAS is confirmed.\n", args[0])
			return nil
		},
	}
}

func trustVerifyConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-confirm <peer-nickname>",
		Short: "Mark a peer's trust record as verified after confirming its SAS out of band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := openTrustStore()
			if err != nil {
				return err
			}
			if err := ts.MarkVerified(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s marked verified.\n", args[0])
			return nil
		},
	}
}
