package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"ciphermesh/internal/crypto"
	"ciphermesh/internal/domain"
	"ciphermesh/internal/handshake"
	"ciphermesh/internal/relay"
	"ciphermesh/internal/session"
	"ciphermesh/internal/wire"
)

func joinCmd() *cobra.Command {
	var nickname, room string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a relay room, print peer activity, and handshake with new peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if room == "" {
				return fmt.Errorf("room required (--room)")
			}

			s, err := session.Unlock(home, nickname, []byte(passphrase))
			if err != nil {
				return err
			}
			defer s.Close()

			client := relay.NewClient(relayURL)
			ack, err := client.Join(nickname, room, crypto.B64(s.Identity.Public().Slice()), crypto.B64(s.Identity.SignPublic().Slice()))
			if err != nil {
				return err
			}
			fmt.Printf("Joined %q as %q. Peers present: %v\n", room, nickname, ack.Peers)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt)

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-sigCh:
					return s.Save([]byte(passphrase))
				case <-ticker.C:
					envs, err := client.Poll()
					if err != nil {
						fmt.Fprintf(os.Stderr, "poll error: %v\n", err)
						continue
					}
					for _, env := range envs {
						handleJoinEvent(s, env)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname this identity was created with")
	cmd.Flags().StringVar(&room, "room", "", "room to join")
	return cmd
}

func handleJoinEvent(s *session.Session, env wire.Envelope) {
	switch env.Kind {
	case wire.KindPeerJoined:
		var p wire.PeerJoinedPayload
		if err := decodePayload(env, &p); err != nil {
			return
		}
		pubBytes, err := crypto.FromB64(p.PublicKey)
		if err != nil || len(pubBytes) != 32 {
			return
		}
		peerPub := domain.MustX25519Public(pubBytes)

		var signPub domain.Ed25519Public
		if p.SignKey != "" {
			if signBytes, err := crypto.FromB64(p.SignKey); err == nil && len(signBytes) == 32 {
				signPub = domain.MustEd25519Public(signBytes)
			}
		}

		// peer_joined is relay-forwarded join metadata, not an authenticated
		// announcement: a changed key here only gets auto-accepted when it
		// still matches what TOFU already trusts. A mismatch is surfaced to
		// the user rather than silently applied, since nothing here proves
		// the peer actually controls the new key.
		status := s.Trust.Check(p.Nickname, peerPub)
		switch status {
		case domain.NewPeer:
			if err := s.Trust.Record(p.Nickname, p.Nickname, peerPub, signPub); err != nil {
				fmt.Fprintf(os.Stderr, "trust record failed for %s: %v\n", p.Nickname, err)
			}
		case domain.Trusted:
			if err := s.Trust.AutoUpdate(p.Nickname, p.Nickname, peerPub); err != nil {
				fmt.Fprintf(os.Stderr, "trust update failed for %s: %v\n", p.Nickname, err)
			}
		case domain.Mismatch, domain.VerifiedMismatch:
			fmt.Fprintf(os.Stderr, "WARNING: %s rejoined with a different key (%s). Run `ciphermesh trust update %s` only after confirming the new SAS out of band.\n", p.Nickname, status, p.Nickname)
		}
		fmt.Printf("peer joined: %s (%s)\n", p.Nickname, status)

		// A peer that had to rejoin under a different nickname (e.g. a relay
		// collision with its own stale session) is still the same DH
		// identity: migrate its ratchet instead of starting a fresh
		// handshake under the new nickname.
		if _, already := s.Registry.Get(p.Nickname); !already {
			if oldID, found := s.Registry.FindByPublicKey(peerPub); found && oldID != p.Nickname {
				if err := s.Registry.MigrateRatchet(oldID, p.Nickname); err != nil {
					fmt.Fprintf(os.Stderr, "ratchet migration %s -> %s failed: %v\n", oldID, p.Nickname, err)
				} else {
					fmt.Printf("migrated ratchet session: %s -> %s\n", oldID, p.Nickname)
				}
			}
		}

		initiator := s.InitiatorFor(p.Nickname)
		if err := s.Registry.RegisterPeer(p.Nickname, peerPub, s.Identity.Private(), initiator); err != nil && err != handshake.ErrAlreadyRegistered {
			fmt.Fprintf(os.Stderr, "handshake registration failed for %s: %v\n", p.Nickname, err)
		}
	case wire.KindPeerLeft:
		var p wire.PeerLeftPayload
		if err := decodePayload(env, &p); err != nil {
			return
		}
		fmt.Printf("peer left: %s\n", p.Nickname)
		s.Registry.RemovePeer(p.Nickname)
	case wire.KindPeerKeyUpdated:
		var p wire.PeerKeyUpdatedPayload
		if err := decodePayload(env, &p); err != nil {
			return
		}
		pubBytes, err := crypto.FromB64(p.PublicKey)
		if err != nil || len(pubBytes) != 32 {
			fmt.Fprintf(os.Stderr, "key update from %s has a malformed public key\n", p.Nickname)
			return
		}
		newPub := domain.MustX25519Public(pubBytes)
		sig, err := crypto.FromB64(p.Signature)
		if err != nil {
			fmt.Fprintf(os.Stderr, "key update from %s has a malformed signature\n", p.Nickname)
			return
		}

		rec, known := s.Trust.Get(p.Nickname)
		authenticated := known && rec.SignKey != (domain.Ed25519Public{}) &&
			crypto.VerifyEd25519(rec.SignKey, wire.KeyUpdateSignedMessage(newPub, p.Timestamp), sig)

		if authenticated {
			if err := s.Trust.AutoUpdate(p.Nickname, p.Nickname, newPub); err != nil {
				fmt.Fprintf(os.Stderr, "trust auto-update failed for %s: %v\n", p.Nickname, err)
			}
			fmt.Printf("peer key rotated (authenticated): %s\n", p.Nickname)
		} else {
			if err := s.Trust.Update(p.Nickname, newPub); err != nil {
				fmt.Fprintf(os.Stderr, "trust update failed for %s: %v\n", p.Nickname, err)
			}
			fmt.Printf("WARNING: unauthenticated key change accepted for %s; verified flag cleared, re-confirm SAS.\n", p.Nickname)
		}

		if err := s.Registry.UpdatePeerKey(p.Nickname, newPub); err != nil {
			fmt.Fprintf(os.Stderr, "handshake key update failed for %s: %v\n", p.Nickname, err)
		}
	case wire.KindEncryptedMsg:
		fmt.Println("encrypted message queued; use `ciphermesh recv` to decrypt")
	}
}
