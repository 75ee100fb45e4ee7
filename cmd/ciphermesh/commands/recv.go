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

func recvCmd() *cobra.Command {
	var nickname, room string
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Poll the relay and decrypt any queued messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}

			s, err := session.Unlock(home, nickname, []byte(passphrase))
			if err != nil {
				return err
			}
			defer s.Close()

			client := relay.NewClient(relayURL)
			if room != "" {
				if _, err := client.Join(nickname, room, crypto.B64(s.Identity.Public().Slice()), ""); err != nil {
					return fmt.Errorf("rejoin relay to receive: %w", err)
				}
			}

			envs, err := client.Poll()
			if err != nil {
				return err
			}

			for _, env := range envs {
				if env.Kind != wire.KindEncryptedMsg {
					continue
				}
				var p wire.EncryptedMessagePayload
				if err := decodePayload(env, &p); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "malformed message: %v\n", err)
					continue
				}
				plaintext, err := decryptFrom(s, p)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p.From, err)
					continue
				}
				fmt.Printf("%s: %s\n", p.From, plaintext)
			}

			return s.Save([]byte(passphrase))
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname this identity was created with")
	cmd.Flags().StringVar(&room, "room", "", "room to (re)join before receiving, if not already joined this run")
	return cmd
}

func decryptFrom(s *session.Session, p wire.EncryptedMessagePayload) (string, error) {
	ctBytes, err := crypto.FromB64(p.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext")
	}
	nonceBytes, err := crypto.FromB64(p.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return "", fmt.Errorf("malformed nonce")
	}
	ephBytes, err := crypto.FromB64(p.EphemeralPublic)
	if err != nil || len(ephBytes) != 32 {
		return "", fmt.Errorf("malformed ephemeral public key")
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	ephPub := domain.MustX25519Public(ephBytes)

	var plaintext []byte
	err = s.Registry.WithRatchet(p.From, func(rs *domain.RatchetState) error {
		pt, decErr := ratchet.Decrypt(rs, ctBytes, nonce, ephPub, p.Counter, p.PreviousCounter)
		plaintext = pt
		return decErr
	})
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
