// Package verify answers "has this file been recorded?" by asking the record
// store and the ledger at the same time and reconciling the answers.
package verify

import (
	"context"

	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/records"
	"golang.org/x/sync/errgroup"
)

// LedgerReader is the read side of the registry contract.
type LedgerReader interface {
	FileInfo(ctx context.Context, digest string) (*records.LedgerEntry, error)
}

// Outcome of a reconciliation. Exactly one applies to a result.
type Outcome int

const (
	NoMatch Outcome = iota
	StoreMatch
	LedgerMatch
	BothMatch
)

func (o Outcome) String() string {
	switch o {
	case StoreMatch:
		return "store match"
	case LedgerMatch:
		return "ledger match"
	case BothMatch:
		return "store and ledger match"
	default:
		return "no match"
	}
}

func reconcile(store, ledger bool) Outcome {
	switch {
	case store && ledger:
		return BothMatch
	case store:
		return StoreMatch
	case ledger:
		return LedgerMatch
	default:
		return NoMatch
	}
}

// Query is what gets looked up. Empty fields are skipped by the store; the
// ledger is keyed by SHA256 only.
type Query struct {
	SHA256 string
	SHA1   string
	SHA512 string
}

// Result of one verification request.
type Result struct {
	Seq     uint64
	Query   Query
	Outcome Outcome
	// Matches holds every store row, newest first. Record is the first.
	Matches []*records.FileRecord
	Record  *records.FileRecord
	Entry   *records.LedgerEntry
	// File is set when the request started from a file.
	File *FileSummary

	StoreErr  error
	LedgerErr error
}

// FileSummary describes the file a request was started from.
type FileSummary struct {
	Name string
	Type string
	Size int64
}

// Verifier runs the two lookups.
type Verifier struct {
	store  records.Finder
	ledger LedgerReader
	logger logging.Logger
}

// NewVerifier creates a verifier. ledger may be nil when no contract is
// configured; results then never carry a ledger entry.
func NewVerifier(store records.Finder, ledger LedgerReader, logger logging.Logger) *Verifier {
	return &Verifier{store: store, ledger: ledger, logger: logger.With("module", "verify")}
}

// Lookup queries both sources concurrently. A failing source is recorded on
// the result and does not affect the other.
func (v *Verifier) Lookup(ctx context.Context, q Query) *Result {
	res := &Result{Query: q}

	var g errgroup.Group

	g.Go(func() error {
		rows, err := v.store.QueryByDigestAny(ctx, q.SHA256, q.SHA1, q.SHA512)
		if err != nil {
			v.logger.Warn(ctx, "record store lookup failed", "error", err)
			res.StoreErr = err
			return nil
		}
		res.Matches = rows
		return nil
	})

	if v.ledger != nil && len(q.SHA256) == 64 {
		g.Go(func() error {
			entry, err := v.ledger.FileInfo(ctx, q.SHA256)
			if err != nil {
				v.logger.Warn(ctx, "ledger lookup failed", "error", err)
				res.LedgerErr = err
				return nil
			}
			res.Entry = entry
			return nil
		})
	}

	_ = g.Wait()

	if len(res.Matches) > 0 {
		res.Record = res.Matches[0]
	}
	res.Outcome = reconcile(res.Record != nil, res.Entry != nil)
	return res
}
