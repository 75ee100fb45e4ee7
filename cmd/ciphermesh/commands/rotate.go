package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/relay"
	"ciphermesh/internal/session"
	"ciphermesh/internal/wire"
)

func rotateCmd() *cobra.Command {
	var nickname, room string
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the local identity key and announce it to a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			s, err := session.Unlock(home, nickname, []byte(passphrase))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Identity.Rotate(); err != nil {
				return err
			}

			newPub := s.Identity.Public()
			timestamp := time.Now().UnixMilli()
			signature := s.Identity.Sign(wire.KeyUpdateSignedMessage(newPub, timestamp))

			if room != "" {
				client := relay.NewClient(relayURL)
				if _, err := client.Join(nickname, room, crypto.B64(newPub[:]), crypto.B64(s.Identity.SignPublic().Slice())); err != nil {
					return fmt.Errorf("join relay to announce rotation: %w", err)
				}
				if err := client.Send(wire.KindKeyUpdate, wire.KeyUpdatePayload{
					PublicKey: crypto.B64(newPub[:]),
					Signature: crypto.B64(signature),
					Timestamp: timestamp,
				}); err != nil {
					return fmt.Errorf("announce rotation: %w", err)
				}
			}

			if err := s.Save([]byte(passphrase)); err != nil {
				return err
			}
			fmt.Printf("Identity rotated.\nNew fingerprint: %s\n", s.Identity.Fingerprint())
			if room == "" {
				fmt.Println("No --room given: peers will not learn of this rotation until they see a new key from another channel.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname this identity was created with")
	cmd.Flags().StringVar(&room, "room", "", "room to announce the rotation in")
	return cmd
}
