package filehashes

import (
	"context"

	"github.com/dmitrijs2005/docverify/internal/records"
)

// Repository is the server-side record store. On top of records.Store it
// offers updates restricted to one owner's rows.
type Repository interface {
	records.Store
	UpdateOwnedByDigest(ctx context.Context, owner, sha256 string, p records.Patch) (int64, error)
}
