package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/docverify/internal/certificate"
	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/export"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

// fail writes the status matching err. Unknown errors are logged and
// reported without detail.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	var code int
	switch {
	case errors.Is(err, common.ErrInput), errors.Is(err, common.ErrCryptoUnavailable):
		code = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		code = http.StatusNotFound
	case errors.Is(err, common.ErrLedgerCall):
		code = http.StatusBadGateway
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, errorResponse{Error: err.Error()})
}

func (s *HTTPServer) health(c *gin.Context) {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(c.Request.Context()); err != nil {
			s.logger.Warn(c.Request.Context(), "database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func filterFromQuery(c *gin.Context) (records.Filter, error) {
	f := records.Filter{
		FileName:     c.Query("file_name"),
		Tag:          c.Query("tag"),
		Owner:        c.Query("owner"),
		BlockchainTx: c.Query("blockchain_tx"),
		SHA256:       c.Query("sha256"),
	}

	if v := c.Query("registered_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("registered_only: %w", common.ErrInput)
		}
		f.RegisteredOnly = b
	}
	for name, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := c.Query(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return f, fmt.Errorf("%s must be RFC3339: %w", name, common.ErrInput)
			}
			*dst = &t
		}
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("limit must be a non-negative integer: %w", common.ErrInput)
		}
		f.Limit = n
	}
	return f, nil
}

func (s *HTTPServer) listFiles(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := s.deps.Records.Search(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *HTTPServer) filesByOwner(c *gin.Context) {
	rows, err := s.deps.Records.QueryByOwner(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *HTTPServer) filesByCID(c *gin.Context) {
	rows, err := s.deps.Records.QueryByCID(c.Request.Context(), c.Param("cid"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *HTTPServer) stats(c *gin.Context) {
	st, err := s.deps.Records.Stats(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type fileSummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type verifyResponse struct {
	Outcome     string                `json:"outcome"`
	SHA256      string                `json:"sha256,omitempty"`
	SHA1        string                `json:"sha1,omitempty"`
	SHA512      string                `json:"sha512,omitempty"`
	File        *fileSummary          `json:"file,omitempty"`
	Record      *records.FileRecord   `json:"record,omitempty"`
	Matches     []*records.FileRecord `json:"matches"`
	Ledger      *records.LedgerEntry  `json:"ledger,omitempty"`
	StoreError  string                `json:"store_error,omitempty"`
	LedgerError string                `json:"ledger_error,omitempty"`
}

func newVerifyResponse(res *verify.Result) verifyResponse {
	out := verifyResponse{
		Outcome: res.Outcome.String(),
		SHA256:  res.Query.SHA256,
		SHA1:    res.Query.SHA1,
		SHA512:  res.Query.SHA512,
		Record:  res.Record,
		Matches: res.Matches,
		Ledger:  res.Entry,
	}
	if out.Matches == nil {
		out.Matches = []*records.FileRecord{}
	}
	if res.File != nil {
		out.File = &fileSummary{Name: res.File.Name, Type: res.File.Type, Size: res.File.Size}
	}
	if res.StoreErr != nil {
		out.StoreError = res.StoreErr.Error()
	}
	if res.LedgerErr != nil {
		out.LedgerError = res.LedgerErr.Error()
	}
	return out
}

func (s *HTTPServer) respondVerified(c *gin.Context, res *verify.Result) {
	s.metrics.verifications.WithLabelValues(res.Outcome.String()).Inc()
	c.JSON(http.StatusOK, newVerifyResponse(res))
}

func (s *HTTPServer) verifyDigest(c *gin.Context) {
	q, err := verify.ParseDigest(c.Param("digest"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondVerified(c, s.deps.Verifier.Lookup(c.Request.Context(), q))
}

func (s *HTTPServer) verifyUpload(c *gin.Context) {
	ctx := c.Request.Context()
	if s.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
			return
		}
		s.fail(c, fmt.Errorf("multipart field \"file\" is required: %w", common.ErrInput))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	set, err := s.deps.Hasher.Compute(ctx, content)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := set.Require(); err != nil {
		s.fail(c, err)
		return
	}

	res := s.deps.Verifier.Lookup(ctx, verify.Query{SHA256: set.SHA256, SHA1: set.SHA1, SHA512: set.SHA512})
	res.File = &verify.FileSummary{Name: fh.Filename, Type: fh.Header.Get("Content-Type"), Size: int64(len(content))}
	s.respondVerified(c, res)
}

func (s *HTTPServer) decodeTx(c *gin.Context) {
	if s.deps.Tx == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "no ledger connection configured"})
		return
	}
	dec, err := ledger.DecodeRegistrationTx(c.Request.Context(), s.deps.Tx, c.Param("hash"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

func (s *HTTPServer) exportCSV(c *gin.Context) {
	rows, err := s.deps.Records.QueryByOwner(c.Request.Context(), c.Param("address"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFileName))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", export.CSV(rows))
}

func (s *HTTPServer) certificate(c *gin.Context) {
	ctx := c.Request.Context()

	q, err := verify.ParseDigest(c.Param("digest"))
	if err != nil {
		s.fail(c, err)
		return
	}

	res := s.deps.Verifier.Lookup(ctx, q)
	if res.StoreErr != nil {
		s.fail(c, res.StoreErr)
		return
	}
	if res.Record == nil {
		s.fail(c, fmt.Errorf("no record for %s: %w", c.Param("digest"), common.ErrorNotFound))
		return
	}
	rec, entry := res.Record, res.Entry
	if q.SHA256 == "" {
		// The ledger is keyed by sha256 only.
		entry = s.deps.Verifier.Lookup(ctx, verify.Query{SHA256: rec.SHA256}).Entry
	}
	if records.Deref(rec.BlockchainTx) == "" && entry == nil {
		c.JSON(http.StatusConflict, errorResponse{Error: "file is not registered on the ledger"})
		return
	}

	d := certificate.FromRecord(rec, entry, s.opts.Contract)
	d.VerifyURL = certificate.VerifyURL(s.opts.PublicBaseURL, rec.SHA256)
	d.GeneratedAt = s.now()

	cert, err := certificate.Render(d)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.FileName))
	c.Data(http.StatusOK, "application/pdf", cert.Content)
}
