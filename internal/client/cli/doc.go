// Package cli provides the interactive gophauth command-line client.
//
// It wires configuration, the local token store, the identity provider
// client and the authentication services into a REPL. On start it restores
// a persisted session, starts the backend sync reconciler and a background
// connectivity watcher, then executes user commands.
//
// Key features:
//   - Sign up with email verification
//   - Sign in with a password or a third-party provider (browser)
//   - Password reset with an emailed 6-digit code
//   - Sign out with confirmation
//   - whoami / status
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
