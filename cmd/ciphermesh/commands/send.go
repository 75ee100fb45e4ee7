package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/ratchet"
	"ciphermesh/internal/relay"
	"ciphermesh/internal/session"
	"ciphermesh/internal/wire"
)

func sendCmd() *cobra.Command {
	var nickname, room, to, message string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Encrypt a message to a peer already in the handshake registry and relay it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if to == "" || message == "" {
				return fmt.Errorf("both --to and --message are required")
			}

			s, err := session.Unlock(home, nickname, []byte(passphrase))
			if err != nil {
				return err
			}
			defer s.Close()

			var result ratchet.SendResult
			err = s.Registry.WithRatchet(to, func(rs *domain.RatchetState) error {
				var encErr error
				result, encErr = ratchet.Encrypt(rs, []byte(message))
				return encErr
			})
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}

			client := relay.NewClient(relayURL)
			if room != "" {
				if _, err := client.Join(nickname, room, crypto.B64(s.Identity.Public().Slice()), ""); err != nil {
					return fmt.Errorf("rejoin relay to send: %w", err)
				}
			}

			err = client.Send(wire.KindEncryptedMsg, wire.EncryptedMessagePayload{
				From:            nickname,
				To:              to,
				Ciphertext:      crypto.B64(result.Ciphertext),
				Nonce:           crypto.B64(result.Nonce[:]),
				EphemeralPublic: crypto.B64(result.EphemeralPublic[:]),
				Counter:         result.Counter,
				PreviousCounter: result.PreviousCounter,
			})
			if err != nil {
				return fmt.Errorf("relay send: %w", err)
			}

			if err := s.Save([]byte(passphrase)); err != nil {
				return fmt.Errorf("persist ratchet advance: %w", err)
			}
			fmt.Println("sent.")
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname this identity was created with")
	cmd.Flags().StringVar(&room, "room", "", "room to (re)join before sending, if not already joined this run")
	cmd.Flags().StringVar(&to, "to", "", "recipient nickname, must already be in the handshake registry")
	cmd.Flags().StringVar(&message, "message", "", "plaintext message to send")
	return cmd
}
