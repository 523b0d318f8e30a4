package cli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/config"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/export"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/records/memstore"
	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/dmitrijs2005/docverify/internal/wallet"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type fakeAPI struct {
	*memstore.Store
	logins   int
	logouts  int
	loginErr error
}

func (f *fakeAPI) Login(context.Context) error { f.logins++; return f.loginErr }
func (f *fakeAPI) Logout()                     { f.logouts++ }

const txHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"

type fakeLedger struct {
	registered []string
}

func (f *fakeLedger) Register(_ context.Context, digest, _, _ string) (string, error) {
	f.registered = append(f.registered, digest)
	return txHash, nil
}

func (f *fakeLedger) WaitMined(context.Context, string) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (f *fakeLedger) CheckRegistered(_ context.Context, digest string) (ledger.RegistrationStatus, error) {
	for _, d := range f.registered {
		if d == digest {
			return ledger.StatusRegistered, nil
		}
	}
	return ledger.StatusNotRegistered, nil
}

type notFoundTx struct{}

func (notFoundTx) TransactionByHash(context.Context, ethcommon.Hash) (*types.Transaction, bool, error) {
	return nil, false, ethereum.NotFound
}

func (notFoundTx) TransactionReceipt(context.Context, ethcommon.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func newTestApp(t *testing.T, chain services.Ledger) (*App, *fakeAPI) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	provider := wallet.NewKeyProvider(key, nil, nil)
	api := &fakeAPI{Store: memstore.New()}
	engine := digest.NewEngine(nopLogger{})

	a := &App{
		config:   &config.Config{OutputDir: t.TempDir(), RequestTimeout: 5 * time.Second},
		logger:   nopLogger{},
		provider: provider,
		session:  wallet.NewSession(provider, nil, nopLogger{}),
		api:      api,
		engine:   engine,
		reader:   rdr(""),
		now:      time.Now,
	}

	var ledgerFn services.LedgerFunc
	if chain != nil {
		ledgerFn = func(context.Context) (services.Ledger, error) { return chain, nil }
	}
	a.files = services.NewFileService(engine, api, nil, ledgerFn, a.owner, nopLogger{})
	a.verifier = verify.NewOrchestrator(engine, verify.NewVerifier(api, nil, nopLogger{}), nopLogger{})
	return a, api
}

func writeFile(t *testing.T, name, content string) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	sum := sha256.Sum256([]byte(content))
	return path, hex.EncodeToString(sum[:])
}

func TestApp_ConnectWhoAmIDisconnect(t *testing.T) {
	ctx := context.Background()
	out := capture(t)
	a, api := newTestApp(t, nil)

	require.NoError(t, a.WhoAmI(ctx, nil))
	assert.Contains(t, out.String(), "Not connected")
	assert.Equal(t, "not connected", a.status())

	require.NoError(t, a.Connect(ctx, nil))
	addr, ok := a.session.CurrentAddress()
	require.True(t, ok)
	assert.Equal(t, 1, api.logins)
	assert.Contains(t, out.String(), "Connected: "+addr.Hex())
	assert.True(t, a.isConnected())
	assert.Equal(t, shortAddress(addr.Hex()), a.status())

	require.NoError(t, a.WhoAmI(ctx, nil))
	assert.Contains(t, out.String(), addr.Hex())

	require.NoError(t, a.Disconnect(ctx, nil))
	assert.Equal(t, 1, api.logouts)
	assert.False(t, a.isConnected())
}

func TestApp_ConnectServerDown(t *testing.T) {
	out := capture(t)
	a, api := newTestApp(t, nil)
	api.loginErr = errors.New("connection refused")

	require.NoError(t, a.Connect(context.Background(), nil))
	assert.True(t, a.isConnected())
	assert.Contains(t, out.String(), "Warning: record server login failed")
}

func TestApp_ConnectWithoutKey(t *testing.T) {
	out := capture(t)
	a, _ := newTestApp(t, nil)
	a.provider = wallet.NewKeyProvider(nil, nil, nil)
	a.session = wallet.NewSession(a.provider, nil, nopLogger{})

	err := a.Connect(context.Background(), nil)
	require.ErrorIs(t, err, wallet.ErrNoAccount)
	assert.Contains(t, out.String(), "Error:")
}

func TestApp_RecordWorkflow(t *testing.T) {
	ctx := context.Background()
	out := capture(t)
	a, api := newTestApp(t, nil)
	path, sum := writeFile(t, "contract.txt", "signed contract body")

	require.NoError(t, a.Connect(ctx, nil))
	require.NoError(t, a.Hash(ctx, []string{path}))
	assert.Contains(t, out.String(), "SHA-256:   "+sum)
	assert.Contains(t, a.status(), "contract.txt")

	a.reader = rdr("legal, 2024 \nfirst line\nsecond line\n\n")
	require.NoError(t, a.Annotate(ctx, nil))
	assert.Equal(t, "legal,2024", a.files.Current().Tags)
	assert.Equal(t, "first line\nsecond line", a.files.Current().Notes)

	require.NoError(t, a.Save(ctx, nil))
	rows, err := api.QueryAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, sum, rows[0].SHA256)
	assert.Contains(t, out.String(), "Saved record "+rows[0].ID)

	out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.Contains(t, out.String(), "contract.txt")
	assert.Contains(t, out.String(), "1 record(s)")

	out.Reset()
	require.NoError(t, a.Search(ctx, []string{"tag=legal"}))
	assert.Contains(t, out.String(), "contract.txt")

	out.Reset()
	require.NoError(t, a.Search(ctx, []string{"registered"}))
	assert.Contains(t, out.String(), "No records")

	require.ErrorIs(t, a.Search(ctx, []string{"color=red"}), common.ErrInput)

	out.Reset()
	require.NoError(t, a.Stats(ctx, nil))
	assert.Contains(t, out.String(), "Records:    1")
	assert.Contains(t, out.String(), "Registered: 0")

	require.NoError(t, a.Export(ctx, nil))
	exported, err := os.ReadFile(filepath.Join(a.config.OutputDir, "hashes.csv"))
	require.NoError(t, err)
	table, err := csv.NewReader(bytes.NewReader(exported)).ReadAll()
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, export.Columns, table[0])
	assert.Equal(t, "contract.txt", table[1][0])
	assert.Equal(t, "legal,2024", table[1][slices.Index(export.Columns, "tags")])
	assert.Equal(t, "first line\nsecond line", table[1][slices.Index(export.Columns, "notes")])

	require.NoError(t, a.Delete(ctx, []string{rows[0].ID}))
	out.Reset()
	require.NoError(t, a.List(ctx, nil))
	assert.Contains(t, out.String(), "No records")

	require.ErrorIs(t, a.Delete(ctx, []string{rows[0].ID}), common.ErrorNotFound)
}

func TestApp_Verify(t *testing.T) {
	ctx := context.Background()
	out := capture(t)
	a, _ := newTestApp(t, nil)
	path, sum := writeFile(t, "deed.txt", "deed of sale")

	require.NoError(t, a.VerifyHash(ctx, []string{sum}))
	assert.Contains(t, out.String(), "no match")

	require.NoError(t, a.Hash(ctx, []string{path}))
	require.NoError(t, a.Save(ctx, nil))

	out.Reset()
	require.NoError(t, a.VerifyHash(ctx, []string{strings.ToUpper(sum)}))
	assert.Contains(t, out.String(), "store match")
	assert.Contains(t, out.String(), "deed.txt")

	out.Reset()
	require.NoError(t, a.Verify(ctx, []string{path}))
	assert.Contains(t, out.String(), "store match")
	assert.Contains(t, out.String(), "File:     deed.txt")

	require.ErrorIs(t, a.VerifyHash(ctx, []string{"not-hex"}), common.ErrInput)
	require.Error(t, a.Verify(ctx, []string{filepath.Join(t.TempDir(), "missing")}))
}

func TestApp_RegisterAndCert(t *testing.T) {
	ctx := context.Background()
	out := capture(t)
	chain := &fakeLedger{}
	a, api := newTestApp(t, chain)
	path, sum := writeFile(t, "thesis.txt", "thesis text")

	require.NoError(t, a.Hash(ctx, []string{path}))
	assert.Contains(t, out.String(), "Ledger:    not registered")

	require.ErrorIs(t, a.Register(ctx, nil), common.ErrNoProvider)
	require.Error(t, a.Cert(ctx, nil))

	require.NoError(t, a.Connect(ctx, nil))
	require.NoError(t, a.Save(ctx, nil))
	require.NoError(t, a.Register(ctx, nil))
	assert.Contains(t, out.String(), "Submitted: "+txHash)
	assert.Contains(t, out.String(), "Registered in transaction "+txHash)
	assert.Equal(t, []string{sum}, chain.registered)

	rows, err := api.QueryByDigestAny(ctx, sum, "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsRegistered)
	require.NotNil(t, rows[0].BlockchainTx)
	assert.Equal(t, txHash, *rows[0].BlockchainTx)

	require.NoError(t, a.Check(ctx, nil))
	assert.Contains(t, out.String(), "Ledger: registered")

	require.NoError(t, a.Cert(ctx, nil))
	matches, err := filepath.Glob(filepath.Join(a.config.OutputDir, "certificate_thesis_txt_*.pdf"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	pdf, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))

	custom := filepath.Join(t.TempDir(), "cert.pdf")
	require.NoError(t, a.Cert(ctx, []string{custom}))
	assert.FileExists(t, custom)
}

func TestApp_Unconfigured(t *testing.T) {
	ctx := context.Background()
	out := capture(t)
	a, _ := newTestApp(t, nil)

	require.ErrorIs(t, a.Save(ctx, nil), services.ErrNoFile)
	require.ErrorIs(t, a.Annotate(ctx, nil), services.ErrNoFile)

	path, _ := writeFile(t, "a.txt", "a")
	require.NoError(t, a.Hash(ctx, []string{path}))
	require.ErrorIs(t, a.Pin(ctx, nil), common.ErrPinning)
	require.ErrorIs(t, a.Check(ctx, nil), common.ErrNoProvider)
	require.ErrorIs(t, a.Tx(ctx, []string{txHash}), common.ErrNoProvider)

	out.Reset()
	require.NoError(t, a.Stats(ctx, nil))
	assert.Contains(t, out.String(), "Connect a wallet first")
}

func TestApp_Tx(t *testing.T) {
	capture(t)
	a, _ := newTestApp(t, nil)
	a.tx = notFoundTx{}

	require.ErrorIs(t, a.Tx(context.Background(), []string{txHash}), common.ErrorNotFound)
	require.ErrorIs(t, a.Tx(context.Background(), []string{"0x12"}), common.ErrInput)
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter([]string{"report", "tag=legal", "owner=0xabc", "tx=0x1", "sha256=ff", "registered", "from=2024-01-02", "to=2024-02-01T10:00:00Z", "limit=5"})
	require.NoError(t, err)
	assert.Equal(t, "report", f.FileName)
	assert.Equal(t, "legal", f.Tag)
	assert.Equal(t, "0xabc", f.Owner)
	assert.Equal(t, "0x1", f.BlockchainTx)
	assert.Equal(t, "ff", f.SHA256)
	assert.True(t, f.RegisteredOnly)
	require.NotNil(t, f.From)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, 10, f.To.Hour())
	assert.Equal(t, 5, f.Limit)

	for _, bad := range []string{"limit=x", "from=yesterday", "registered=maybe", "color=red"} {
		_, err := parseFilter([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestNewApp(t *testing.T) {
	capture(t)
	dir := t.TempDir()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	c := &config.Config{}
	c.LoadDefaults()
	c.RPCURL = ""
	c.PrivateKey = hex.EncodeToString(crypto.FromECDSA(key))
	c.SessionFile = filepath.Join(dir, "session.json")
	c.LogFile = filepath.Join(dir, "cli.log")
	c.OutputDir = dir

	a, err := NewApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.eth)
	assert.Nil(t, a.tx)
	assert.Empty(t, a.contractAddress())

	require.NoError(t, a.session.Disconnect(context.Background()))
	addr, err := a.session.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
	assert.FileExists(t, c.SessionFile)
}

func TestNewApp_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("bad log level", func(t *testing.T) {
		c := &config.Config{}
		c.LoadDefaults()
		c.LogLevel = "loud"
		c.LogFile = filepath.Join(dir, "a.log")
		_, err := NewApp(context.Background(), c)
		require.Error(t, err)
	})

	t.Run("bad key", func(t *testing.T) {
		c := &config.Config{}
		c.LoadDefaults()
		c.RPCURL = ""
		c.PrivateKey = "zz"
		c.LogFile = filepath.Join(dir, "b.log")
		_, err := NewApp(context.Background(), c)
		require.ErrorIs(t, err, common.ErrInput)
	})

	t.Run("dial fails", func(t *testing.T) {
		orig := dialLedger
		dialLedger = func(context.Context, string) (*ethclient.Client, error) {
			return nil, errors.New("no route")
		}
		t.Cleanup(func() { dialLedger = orig })

		c := &config.Config{}
		c.LoadDefaults()
		c.LogFile = filepath.Join(dir, "c.log")
		_, err := NewApp(context.Background(), c)
		require.ErrorContains(t, err, "no route")
	})
}

func TestApp_NoTimeoutByDefault(t *testing.T) {
	var cfg config.Config
	cfg.LoadDefaults()
	a := &App{config: &cfg}

	assert.Zero(t, a.httpClient().Timeout)

	ctx, cancel := a.withTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	cfg.RequestTimeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, a.httpClient().Timeout)
}
