// Package memstore is an in-memory records.Store for tests and local
// development.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/google/uuid"
)

type Store struct {
	mu   sync.RWMutex
	rows []*records.FileRecord
	now  func() time.Time

	// Err, when set, is returned (wrapped in a StoreError) by every call.
	Err error
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock makes CreatedAt deterministic.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) fail(op string) error {
	if s.Err != nil {
		return &records.StoreError{Op: op, Err: s.Err}
	}
	return nil
}

func clone(r *records.FileRecord) *records.FileRecord {
	c := *r
	return &c
}

func (s *Store) Insert(_ context.Context, r *records.FileRecord) error {
	if err := s.fail("insert"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.rows = append(s.rows, clone(r))
	return nil
}

func (s *Store) UpdateByDigest(_ context.Context, sha256 string, p records.Patch) (int64, error) {
	if err := s.fail("update"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.rows {
		if r.SHA256 == sha256 {
			p.Apply(r)
			n++
		}
	}
	return n, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	if err := s.fail("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.rows {
		if r.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (s *Store) Get(_ context.Context, id string) (*records.FileRecord, error) {
	if err := s.fail("get"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rows {
		if r.ID == id {
			return clone(r), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (s *Store) selectRows(op string, keep func(*records.FileRecord) bool) ([]*records.FileRecord, error) {
	if err := s.fail(op); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*records.FileRecord, 0)
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) QueryByOwner(_ context.Context, owner string) ([]*records.FileRecord, error) {
	return s.selectRows("query by owner", func(r *records.FileRecord) bool {
		return strings.EqualFold(r.OwnerAddress, owner)
	})
}

func (s *Store) QueryByDigestAny(_ context.Context, sha256, sha1, sha512 string) ([]*records.FileRecord, error) {
	if sha256 == "" && sha1 == "" && sha512 == "" {
		return []*records.FileRecord{}, nil
	}
	return s.selectRows("query by digest", func(r *records.FileRecord) bool {
		return (sha256 != "" && r.SHA256 == sha256) ||
			(sha1 != "" && r.SHA1 == sha1) ||
			(sha512 != "" && r.SHA512 == sha512)
	})
}

func (s *Store) QueryAll(_ context.Context) ([]*records.FileRecord, error) {
	return s.selectRows("query all", func(*records.FileRecord) bool { return true })
}

func (s *Store) QueryByCID(_ context.Context, cid string) ([]*records.FileRecord, error) {
	return s.selectRows("query by cid", func(r *records.FileRecord) bool {
		return r.IPFSCID != nil && *r.IPFSCID == cid
	})
}

func (s *Store) Search(_ context.Context, f records.Filter) ([]*records.FileRecord, error) {
	out, err := s.selectRows("search", f.Match)
	if err != nil {
		return nil, err
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context, owner string) (records.Stats, error) {
	rows, err := s.QueryByOwner(ctx, owner)
	if err != nil {
		return records.Stats{}, err
	}
	var st records.Stats
	for _, r := range rows {
		st.Total++
		st.TotalBytes += r.FileSize
		if r.IsRegistered {
			st.Registered++
		}
		if r.IPFSCID != nil && *r.IPFSCID != "" {
			st.Pinned++
		}
	}
	return st, nil
}
