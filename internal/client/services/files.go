// Package services holds the client-side workflow around one "current"
// file: hash it, save its record, pin its content, register its digest on
// the ledger and check the registration.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docverify/internal/certificate"
	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/pinning"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/ethereum/go-ethereum/core/types"
)

// Ledger is the part of ledger.Contract the workflow uses.
type Ledger interface {
	Register(ctx context.Context, digest, fileName, tag string) (string, error)
	WaitMined(ctx context.Context, txHash string) (*types.Receipt, error)
	CheckRegistered(ctx context.Context, digest string) (ledger.RegistrationStatus, error)
}

// LedgerFunc returns a contract handle. It is called per operation so that
// the handle follows the connected account.
type LedgerFunc func(ctx context.Context) (Ledger, error)

// OwnerFunc returns the connected wallet address.
type OwnerFunc func() (string, bool)

var ErrNoFile = fmt.Errorf("no file selected: %w", common.ErrInput)

// Current is the state of the file being worked on.
type Current struct {
	Path   string
	File   *digest.File
	Tags   string
	Notes  string
	CID    string
	TxHash string
	Status ledger.RegistrationStatus
}

func (c *Current) registered() bool {
	return c.Status == ledger.StatusRegistered
}

type FileService struct {
	engine *digest.Engine
	store  records.Store
	pinner pinning.Pinner
	ledger LedgerFunc
	owner  OwnerFunc
	logger logging.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *Current
}

// NewFileService creates the service. pinner and ledger may be nil when not
// configured.
func NewFileService(engine *digest.Engine, store records.Store, pinner pinning.Pinner, l LedgerFunc, owner OwnerFunc, logger logging.Logger) *FileService {
	return &FileService{
		engine: engine,
		store:  store,
		pinner: pinner,
		ledger: l,
		owner:  owner,
		logger: logger.With("module", "files"),
		now:    time.Now,
	}
}

// Current returns a copy of the current file state, or nil.
func (s *FileService) Current() *Current {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

func (s *FileService) snapshot() (*Current, error) {
	c := s.Current()
	if c == nil || c.File == nil {
		return nil, ErrNoFile
	}
	return c, nil
}

func (s *FileService) update(path string, fn func(c *Current)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A newer Hash replaced the file meanwhile.
	if s.current == nil || s.current.Path != path {
		return
	}
	fn(s.current)
}

// Hash loads path, computes its digests and, when a ledger is configured,
// checks whether the digest is registered. A failed check is logged and
// leaves the status unknown.
func (s *FileService) Hash(ctx context.Context, path string) (*Current, error) {
	f, err := s.engine.ComputeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = &Current{Path: path, File: f}
	s.mu.Unlock()

	if f.Digests.Require() == nil && s.ledger != nil {
		if _, err := s.Check(ctx); err != nil {
			s.logger.Warn(ctx, "registration check failed", "error", err)
		}
	}
	return s.Current(), nil
}

// Annotate sets the tags and notes saved with the record.
func (s *FileService) Annotate(tags, notes string) error {
	c, err := s.snapshot()
	if err != nil {
		return err
	}
	s.update(c.Path, func(c *Current) {
		c.Tags = strings.Join(common.SplitTags(tags), ",")
		c.Notes = notes
	})
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Save inserts a record for the current file. Every call inserts a new row.
func (s *FileService) Save(ctx context.Context) (*records.FileRecord, error) {
	c, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	if err := c.File.Digests.Require(); err != nil {
		return nil, err
	}

	owner, _ := s.owner()
	fileType := c.File.Info.Type
	if fileType == "" {
		fileType = "unknown"
	}

	r := &records.FileRecord{
		OwnerAddress: owner,
		FileName:     c.File.Info.Name,
		FileType:     fileType,
		FileSize:     c.File.Info.Size,
		ModifiedAt:   c.File.Info.Modified,
		SHA256:       c.File.Digests.SHA256,
		SHA1:         c.File.Digests.SHA1,
		SHA512:       c.File.Digests.SHA512,
		SimpleHash:   c.File.Digests.Checksum,
		Tags:         optional(c.Tags),
		Notes:        optional(c.Notes),
		IPFSCID:      optional(c.CID),
		BlockchainTx: optional(c.TxHash),
		IsRegistered: c.registered(),
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}
	s.logger.Info(ctx, "record saved", "id", r.ID, "sha256", r.SHA256)
	return r, nil
}

// Pin uploads the current file and attaches the content identifier to every
// record with its digest. The identifier is returned even when the record
// update fails.
func (s *FileService) Pin(ctx context.Context) (string, error) {
	c, err := s.snapshot()
	if err != nil {
		return "", err
	}
	if s.pinner == nil {
		return "", fmt.Errorf("no pinning backend configured: %w", common.ErrPinning)
	}
	if err := c.File.Digests.Require(); err != nil {
		return "", err
	}

	cid, err := s.pinner.Pin(ctx, c.File.Info.Name, c.File.Content)
	if err != nil {
		return "", err
	}
	s.update(c.Path, func(c *Current) { c.CID = cid })

	if _, err := s.store.UpdateByDigest(ctx, c.File.Digests.SHA256, records.Patch{IPFSCID: &cid}); err != nil {
		return cid, fmt.Errorf("attach cid: %w", err)
	}
	return cid, nil
}

// Register submits the digest, reports the transaction hash through
// submitted as soon as the node accepts it, waits for it to be mined and
// then marks the stored records as registered. A failed record update is
// logged; the registration itself stands.
func (s *FileService) Register(ctx context.Context, submitted func(txHash string)) (string, error) {
	c, err := s.snapshot()
	if err != nil {
		return "", err
	}
	if _, ok := s.owner(); !ok {
		return "", fmt.Errorf("connect a wallet first: %w", common.ErrNoProvider)
	}
	if err := c.File.Digests.Require(); err != nil {
		return "", err
	}
	if s.ledger == nil {
		return "", fmt.Errorf("no ledger configured: %w", common.ErrNoProvider)
	}

	l, err := s.ledger(ctx)
	if err != nil {
		return "", err
	}

	txHash, err := l.Register(ctx, c.File.Digests.SHA256, c.File.Info.Name, c.Tags)
	if err != nil {
		return "", err
	}
	s.update(c.Path, func(c *Current) { c.TxHash = txHash })
	if submitted != nil {
		submitted(txHash)
	}

	if _, err := l.WaitMined(ctx, txHash); err != nil {
		return txHash, err
	}
	s.update(c.Path, func(c *Current) { c.Status = ledger.StatusRegistered })

	patch := records.Patch{BlockchainTx: &txHash, IsRegistered: records.Ptr(true)}
	if _, err := s.store.UpdateByDigest(ctx, c.File.Digests.SHA256, patch); err != nil {
		s.logger.Error(ctx, "record update after registration failed", "tx", txHash, "error", err)
	}
	return txHash, nil
}

// Check asks the ledger whether the current digest is registered. When the
// ledger cannot answer but a registration transaction was seen, the file
// counts as registered.
func (s *FileService) Check(ctx context.Context) (ledger.RegistrationStatus, error) {
	c, err := s.snapshot()
	if err != nil {
		return ledger.StatusUnknown, err
	}
	if err := c.File.Digests.Require(); err != nil {
		return ledger.StatusUnknown, err
	}
	if s.ledger == nil {
		return ledger.StatusUnknown, fmt.Errorf("no ledger configured: %w", common.ErrNoProvider)
	}

	status, err := s.check(ctx, c.File.Digests.SHA256)
	if (err != nil || status == ledger.StatusUnknown) && c.TxHash != "" {
		status, err = ledger.StatusRegistered, nil
	}
	s.update(c.Path, func(c *Current) { c.Status = status })
	return status, err
}

func (s *FileService) check(ctx context.Context, sha256 string) (ledger.RegistrationStatus, error) {
	l, err := s.ledger(ctx)
	if err != nil {
		return ledger.StatusUnknown, err
	}
	return l.CheckRegistered(ctx, sha256)
}

// CertificateData collects what the certificate of the current file shows.
// It needs a registration transaction and a connected wallet.
func (s *FileService) CertificateData(contract, publicBaseURL string) (certificate.Data, error) {
	c, err := s.snapshot()
	if err != nil {
		return certificate.Data{}, err
	}
	owner, ok := s.owner()
	if !ok || c.TxHash == "" {
		return certificate.Data{}, errors.New("certificate needs a registration transaction and a connected wallet")
	}

	info, set := c.File.Info, c.File.Digests
	return certificate.Data{
		File:        &info,
		Digests:     &set,
		IPFSCID:     c.CID,
		TxHash:      c.TxHash,
		Owner:       owner,
		Contract:    contract,
		Tags:        c.Tags,
		Notes:       c.Notes,
		VerifyURL:   certificate.VerifyURL(publicBaseURL, set.SHA256),
		GeneratedAt: s.now(),
	}, nil
}
