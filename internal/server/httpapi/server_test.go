package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/records/memstore"
	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type fakeLedger map[string]*records.LedgerEntry

func (f fakeLedger) FileInfo(_ context.Context, d string) (*records.LedgerEntry, error) {
	return f[d], nil
}

type notFoundTx struct{}

func (notFoundTx) TransactionByHash(context.Context, ethcommon.Hash) (*types.Transaction, bool, error) {
	return nil, false, ethereum.NotFound
}

func (notFoundTx) TransactionReceipt(context.Context, ethcommon.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

type fixture struct {
	srv   *HTTPServer
	store *memstore.Store
	led   fakeLedger
}

func newFixture(t *testing.T, deps Deps, opts Options) *fixture {
	t.Helper()

	st := memstore.New()
	led := fakeLedger{}
	deps.Records = st
	deps.Verifier = verify.NewVerifier(st, led, nopLogger{})
	deps.Hasher = digest.NewEngine(nopLogger{})

	s := NewHTTPServer("", nopLogger{}, deps, opts)
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{srv: s, store: st, led: led}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (f *fixture) insert(t *testing.T, r *records.FileRecord) *records.FileRecord {
	t.Helper()
	require.NoError(t, f.store.Insert(context.Background(), r))
	return r
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Deps{DB: pinger{}}, Options{})
	assert.Equal(t, http.StatusOK, f.get("/healthz").Code)

	f = newFixture(t, Deps{DB: pinger{err: errors.New("down")}}, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, f.get("/healthz").Code)
}

func TestListings(t *testing.T) {
	f := newFixture(t, Deps{}, Options{})
	f.insert(t, &records.FileRecord{OwnerAddress: "0xAA", FileName: "contract.pdf", SHA256: sum("a"), FileSize: 5, IPFSCID: records.Ptr("QmA"), IsRegistered: true})
	f.insert(t, &records.FileRecord{OwnerAddress: "0xBB", FileName: "photo.png", SHA256: sum("b"), FileSize: 7})

	var rows []*records.FileRecord

	w := f.get("/api/files?file_name=CONTRACT")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "contract.pdf", rows[0].FileName)

	w = f.get("/api/files?registered_only=maybe")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.get("/api/files?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.get("/api/files/owner/0xBB")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "photo.png", rows[0].FileName)

	w = f.get("/api/files/cid/QmA")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)

	var st records.Stats
	w = f.get("/api/stats/0xAA")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, records.Stats{Total: 1, Registered: 1, Pinned: 1, TotalBytes: 5}, st)

	f.store.Err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, f.get("/api/files").Code)
}

func TestVerifyDigest(t *testing.T) {
	f := newFixture(t, Deps{}, Options{})
	d := sum("hello")
	f.insert(t, &records.FileRecord{FileName: "hello.txt", SHA256: d})
	f.led[d] = &records.LedgerEntry{Digest: d, FileName: "hello.txt"}

	var resp verifyResponse
	w := f.get("/api/verify/0x" + strings.ToUpper(d))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.BothMatch.String(), resp.Outcome)
	assert.Equal(t, d, resp.SHA256)
	require.NotNil(t, resp.Ledger)

	w = f.get("/api/verify/" + sum("other"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.NoMatch.String(), resp.Outcome)
	assert.NotNil(t, resp.Matches)

	assert.Equal(t, http.StatusBadRequest, f.get("/api/verify/xyz").Code)
}

func upload(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/verify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVerifyUpload(t *testing.T) {
	f := newFixture(t, Deps{}, Options{MaxUploadBytes: 1 << 10})
	f.insert(t, &records.FileRecord{FileName: "hello.txt", SHA256: sum("hello")})

	var resp verifyResponse
	w := f.do(upload(t, "renamed.txt", []byte("hello")))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, verify.StoreMatch.String(), resp.Outcome)
	require.NotNil(t, resp.File)
	assert.Equal(t, "renamed.txt", resp.File.Name)
	assert.EqualValues(t, 5, resp.File.Size)
	assert.Equal(t, "hello.txt", resp.Record.FileName)

	w = f.do(upload(t, "big.bin", bytes.Repeat([]byte{1}, 4<<10)))
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/verify", strings.NewReader("x"))
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestDecodeTx(t *testing.T) {
	hash := "/api/tx/0x" + sum("tx")

	f := newFixture(t, Deps{}, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, f.get(hash).Code)

	f = newFixture(t, Deps{Tx: notFoundTx{}}, Options{})
	assert.Equal(t, http.StatusNotFound, f.get(hash).Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/api/tx/0x12").Code)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, Deps{}, Options{})
	f.insert(t, &records.FileRecord{OwnerAddress: "0xAA", FileName: `say "hi".txt`, SHA256: sum("a")})

	w := f.get("/api/export/0xAA")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "hashes.csv")
	lines := strings.Split(w.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "file_name,file_size"))
	assert.True(t, strings.HasPrefix(lines[1], `"say ""hi"".txt"`))
}

func TestCertificate(t *testing.T) {
	f := newFixture(t, Deps{}, Options{Contract: "0xC0", PublicBaseURL: "https://verify.example.org"})
	reg := f.insert(t, &records.FileRecord{FileName: "deed.pdf", SHA256: sum("deed"), SHA1: strings.Repeat("a", 40), BlockchainTx: records.Ptr("0xabc"), IsRegistered: true})
	f.insert(t, &records.FileRecord{FileName: "draft.pdf", SHA256: sum("draft")})

	w := f.get("/api/certificate/" + reg.SHA256)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificate_deed_pdf_")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = f.get("/api/certificate/" + reg.SHA1)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusConflict, f.get("/api/certificate/"+sum("draft")).Code)
	assert.Equal(t, http.StatusNotFound, f.get("/api/certificate/"+sum("missing")).Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, Deps{}, Options{})
	router := f.srv.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/verify/"+sum("x"), nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `docverify_http_requests_total{code="200",method="GET",route="/api/verify/:digest"} 1`)
	assert.Contains(t, body, `docverify_verifications_total{outcome="no match"} 1`)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t, Deps{}, Options{})
	f.srv.server.Addr = "127.0.0.1:0"
	f.srv.address = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
