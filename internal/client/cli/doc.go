// Package cli provides the interactive docverify command-line client.
//
// It wires configuration, the wallet session, the record server client, the
// ledger contract and the pinning backend, and runs a REPL around one
// "current" file. Typical flow: connect a wallet, hash a file, save its
// record, pin it, register it and produce a certificate.
//
// Key features:
//   - connect / disconnect / whoami for the wallet session
//   - hash, annotate, save, pin, register, check on the current file
//   - verify and verifyhash against the record store and the ledger
//   - list, search, stats, delete, export on stored records
//   - cert to write a PDF certificate, tx to decode a registration
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
