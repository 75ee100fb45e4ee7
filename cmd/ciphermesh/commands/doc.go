// Package commands defines the ciphermesh CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init         Generate a new identity and store it in the vault
//   - rotate       Rotate the local identity key within its grace window
//   - fingerprint  Print the identity fingerprint
//   - trust        Inspect or verify a peer's trust record
//   - sas          Print the Short Authentication String for a peer
//   - join         Join a relay room and print peer activity
//   - send         Encrypt and relay a message to a peer already in the registry
//   - recv         Poll the relay and decrypt queued messages
//
// # Implementation
//
// The root command resolves and creates the home directory before any
// subcommand runs; each subcommand that needs the passphrase checks for it
// itself. Subcommands that need identity material call session.Unlock
// themselves rather than through a shared PersistentPreRunE, since the
// trust subcommands only need the trust store and never touch the vault.
package commands
