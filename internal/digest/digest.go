// Package digest computes the file fingerprints used across docverify:
// SHA-256, SHA-1 and SHA-512 in lower-case hex plus a weak 32-bit rolling
// checksum kept for compatibility with existing records.
package digest

import (
	"context"
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Unavailable is displayed in place of digests a degraded platform could not
// produce.
const Unavailable = "Not available"

// Set is the digest set of one byte sequence. When Degraded is true only
// Checksum is populated.
type Set struct {
	SHA256   string `json:"sha256"`
	SHA1     string `json:"sha1"`
	SHA512   string `json:"sha512"`
	Checksum string `json:"simple_hash"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Require reports common.ErrCryptoUnavailable for a degraded set. Callers
// use it to gate registration and lookups by digest.
func (s Set) Require() error {
	if s.Degraded {
		return common.ErrCryptoUnavailable
	}
	return nil
}

// Display returns v, or Unavailable for an empty digest of a degraded set.
func (s Set) Display(v string) string {
	if s.Degraded && v == "" {
		return Unavailable
	}
	return v
}

var algorithms = []crypto.Hash{crypto.SHA256, crypto.SHA1, crypto.SHA512}

// Engine computes digest sets. The zero value is not usable; use NewEngine.
type Engine struct {
	available func(crypto.Hash) bool
	logger    logging.Logger
}

type Option func(*Engine)

// WithAvailability replaces the primitive availability probe. Tests use it to
// simulate a platform without cryptographic digests.
func WithAvailability(fn func(crypto.Hash) bool) Option {
	return func(e *Engine) { e.available = fn }
}

func NewEngine(logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		available: crypto.Hash.Available,
		logger:    logger.With("module", "digest"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Compute returns the digest set of data. The three cryptographic digests
// are computed concurrently and joined before returning. Empty input is
// valid. A missing primitive degrades the result instead of failing.
func (e *Engine) Compute(ctx context.Context, data []byte) (Set, error) {
	set := Set{Checksum: Checksum(data)}

	for _, h := range algorithms {
		if !e.available(h) {
			e.logger.Warn(ctx, "digest primitive unavailable, only checksum computed", "algorithm", h.String())
			set.Degraded = true
			return set, nil
		}
	}

	targets := []*string{&set.SHA256, &set.SHA1, &set.SHA512}

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range algorithms {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hasher := h.New()
			hasher.Write(data)
			*targets[i] = hex.EncodeToString(hasher.Sum(nil))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Set{}, fmt.Errorf("compute digests: %w", err)
	}

	return set, nil
}

// Checksum is the legacy rolling hash: acc = acc*31 + b over signed 32-bit
// wraparound arithmetic, rendered as the absolute value in at least eight
// lower-case hex digits. It is not collision resistant.
func Checksum(data []byte) string {
	var acc int32
	for _, b := range data {
		acc = (acc << 5) - acc + int32(b)
	}
	return formatChecksum(acc)
}

func formatChecksum(acc int32) string {
	v := int64(acc)
	if v < 0 {
		v = -v
	}
	return fmt.Sprintf("%08x", v)
}
