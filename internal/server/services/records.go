package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/dbx"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/server/repositories/filehashes"
	"github.com/dmitrijs2005/docverify/internal/server/repositories/repomanager"
)

// RecordService guards writes to file_hashes with the caller's address.
// Reads are public.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

var _ records.Reader = (*RecordService)(nil)

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: m}
}

func (s *RecordService) repo() filehashes.Repository {
	return s.repomanager.FileHashes(s.db)
}

// Insert stores r on behalf of owner. A record naming another owner is
// refused; one naming nobody is attributed to owner.
func (s *RecordService) Insert(ctx context.Context, owner string, r *records.FileRecord) error {
	if r == nil || r.FileName == "" || r.SHA256 == "" {
		return fmt.Errorf("record needs a file name and a sha256: %w", common.ErrInput)
	}
	if r.OwnerAddress == "" {
		r.OwnerAddress = owner
	}
	if !strings.EqualFold(r.OwnerAddress, owner) {
		return fmt.Errorf("record owner %s: %w", r.OwnerAddress, common.ErrorUnauthorized)
	}

	r.ID = ""
	r.SHA256 = strings.ToLower(r.SHA256)
	r.SHA1 = strings.ToLower(r.SHA1)
	r.SHA512 = strings.ToLower(r.SHA512)

	return s.repo().Insert(ctx, r)
}

// UpdateByDigest patches owner's rows with the given sha256 and reports how
// many changed.
func (s *RecordService) UpdateByDigest(ctx context.Context, owner, sha256 string, p records.Patch) (int64, error) {
	if sha256 == "" {
		return 0, fmt.Errorf("empty digest: %w", common.ErrInput)
	}
	return s.repo().UpdateOwnedByDigest(ctx, owner, strings.ToLower(sha256), p)
}

// Delete removes one of owner's rows.
func (s *RecordService) Delete(ctx context.Context, owner, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.FileHashes(tx)

		rec, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !strings.EqualFold(rec.OwnerAddress, owner) {
			return fmt.Errorf("record %s belongs to %s: %w", id, rec.OwnerAddress, common.ErrorUnauthorized)
		}
		return repo.Delete(ctx, id)
	})
}

func (s *RecordService) Get(ctx context.Context, id string) (*records.FileRecord, error) {
	return s.repo().Get(ctx, id)
}

func (s *RecordService) QueryByOwner(ctx context.Context, owner string) ([]*records.FileRecord, error) {
	return s.repo().QueryByOwner(ctx, owner)
}

func (s *RecordService) QueryByDigestAny(ctx context.Context, sha256, sha1, sha512 string) ([]*records.FileRecord, error) {
	return s.repo().QueryByDigestAny(ctx, strings.ToLower(sha256), strings.ToLower(sha1), strings.ToLower(sha512))
}

func (s *RecordService) QueryAll(ctx context.Context) ([]*records.FileRecord, error) {
	return s.repo().QueryAll(ctx)
}

func (s *RecordService) QueryByCID(ctx context.Context, cid string) ([]*records.FileRecord, error) {
	return s.repo().QueryByCID(ctx, cid)
}

func (s *RecordService) Search(ctx context.Context, f records.Filter) ([]*records.FileRecord, error) {
	return s.repo().Search(ctx, f)
}

func (s *RecordService) Stats(ctx context.Context, owner string) (records.Stats, error) {
	return s.repo().Stats(ctx, owner)
}
