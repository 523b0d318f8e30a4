// Package common defines shared constants and sentinel errors used across
// client and server layers of docverify. Callers should use errors.Is to
// match these values; typed errors in the domain packages unwrap to them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token, bad login signature).
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid signature")

	// Input errors: missing file, bad digest, empty name.
	ErrInput = errors.New("invalid input")

	// ErrCryptoUnavailable is returned when the platform lacks a digest
	// primitive; only the rolling checksum can be produced.
	ErrCryptoUnavailable = errors.New("cryptographic digests are not available")

	ErrPinning = errors.New("pinning failed")

	// Ledger errors.
	ErrNoProvider           = errors.New("no wallet provider")
	ErrInvalidContract      = errors.New("invalid contract configuration")
	ErrNoCompatibleFunction = errors.New("no compatible registration function")
	ErrLedgerCall           = errors.New("ledger call failed")

	ErrStore       = errors.New("record store failure")
	ErrCertificate = errors.New("certificate generation failed")
)
