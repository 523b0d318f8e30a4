// Package records holds the file record model and the Store port shared by
// the PostgreSQL repository, the gRPC client and the in-memory store used in
// tests.
package records

import (
	"strings"
	"time"
)

// FileRecord is one persisted observation of a file. SHA256 is the identity
// key but is not unique: every save inserts a new row.
type FileRecord struct {
	ID           string    `json:"id"`
	OwnerAddress string    `json:"user_wallet"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	ModifiedAt   time.Time `json:"modified_at"`
	SHA256       string    `json:"sha256"`
	SHA1         string    `json:"sha1"`
	SHA512       string    `json:"sha512"`
	SimpleHash   string    `json:"simple_hash"`
	Tags         *string   `json:"tags,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	IPFSCID      *string   `json:"ipfs_cid,omitempty"`
	BlockchainTx *string   `json:"blockchain_tx,omitempty"`
	IsRegistered bool      `json:"is_registered"`
	CreatedAt    time.Time `json:"created_at"`
}

// Patch lists the fields UpdateByDigest may change. Nil fields are left as
// they are.
type Patch struct {
	IPFSCID      *string `json:"ipfs_cid,omitempty"`
	BlockchainTx *string `json:"blockchain_tx,omitempty"`
	IsRegistered *bool   `json:"is_registered,omitempty"`
	Tags         *string `json:"tags,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.IPFSCID == nil && p.BlockchainTx == nil && p.IsRegistered == nil && p.Tags == nil && p.Notes == nil
}

// Apply copies the set fields of p onto r.
func (p Patch) Apply(r *FileRecord) {
	if p.IPFSCID != nil {
		r.IPFSCID = Ptr(*p.IPFSCID)
	}
	if p.BlockchainTx != nil {
		r.BlockchainTx = Ptr(*p.BlockchainTx)
	}
	if p.IsRegistered != nil {
		r.IsRegistered = *p.IsRegistered
	}
	if p.Tags != nil {
		r.Tags = Ptr(*p.Tags)
	}
	if p.Notes != nil {
		r.Notes = Ptr(*p.Notes)
	}
}

// Filter narrows Search. String fields are case-insensitive substring
// matches; zero values disable a condition.
type Filter struct {
	FileName       string     `json:"file_name,omitempty"`
	Tag            string     `json:"tag,omitempty"`
	Owner          string     `json:"owner,omitempty"`
	BlockchainTx   string     `json:"blockchain_tx,omitempty"`
	SHA256         string     `json:"sha256,omitempty"`
	RegisteredOnly bool       `json:"registered_only,omitempty"`
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
	Limit          int        `json:"limit,omitempty"`
}

// Match reports whether r satisfies the filter (Limit is ignored).
func (f Filter) Match(r *FileRecord) bool {
	if !containsFold(r.FileName, f.FileName) || !containsFold(Deref(r.Tags), f.Tag) ||
		!containsFold(r.OwnerAddress, f.Owner) || !containsFold(Deref(r.BlockchainTx), f.BlockchainTx) ||
		!containsFold(r.SHA256, f.SHA256) {
		return false
	}
	if f.RegisteredOnly && !r.IsRegistered {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && r.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// Stats summarises an owner's records.
type Stats struct {
	Total      int64 `json:"total"`
	Registered int64 `json:"registered"`
	Pinned     int64 `json:"pinned"`
	TotalBytes int64 `json:"total_bytes"`
}

// LedgerEntry is what the registry contract holds for a digest.
type LedgerEntry struct {
	Uploader  string    `json:"uploader"`
	Digest    string    `json:"digest"`
	FileName  string    `json:"file_name"`
	Tag       string    `json:"tag"`
	Timestamp time.Time `json:"timestamp"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Deref returns *p or the zero value for nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
