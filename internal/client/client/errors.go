package client

import "errors"

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNoSigner    = errors.New("no wallet to sign the login challenge")
)
