package records

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docverify/internal/common"
)

// Finder is the lookup side of a store, as used by verification.
type Finder interface {
	// QueryByDigestAny returns rows matching any non-empty digest.
	QueryByDigestAny(ctx context.Context, sha256, sha1, sha512 string) ([]*FileRecord, error)
}

// Reader is the read-only part of Store.
type Reader interface {
	Finder
	Get(ctx context.Context, id string) (*FileRecord, error)
	QueryByOwner(ctx context.Context, owner string) ([]*FileRecord, error)
	QueryAll(ctx context.Context) ([]*FileRecord, error)
	QueryByCID(ctx context.Context, cid string) ([]*FileRecord, error)
	Search(ctx context.Context, f Filter) ([]*FileRecord, error)
	Stats(ctx context.Context, owner string) (Stats, error)
}

// Store persists file records. Lists are ordered newest first and empty
// results are not errors.
type Store interface {
	Reader
	// Insert always creates a new row and fills ID and CreatedAt.
	Insert(ctx context.Context, r *FileRecord) error
	// UpdateByDigest applies p to every row with the given sha256 and
	// returns the number of rows changed.
	UpdateByDigest(ctx context.Context, sha256 string, p Patch) (int64, error)
	Delete(ctx context.Context, id string) error
}

// StoreError wraps any transport or query failure of a Store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{common.ErrStore, e.Err}
}
