package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/docverify/internal/client/client"
	"github.com/dmitrijs2005/docverify/internal/client/config"
	"github.com/dmitrijs2005/docverify/internal/client/services"
	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/pinning"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/dmitrijs2005/docverify/internal/wallet"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
)

// dialLedger is a test seam for ethclient.DialContext.
var dialLedger = ethclient.DialContext

// recordClient is the record server as the CLI sees it.
type recordClient interface {
	records.Store
	Login(ctx context.Context) error
	Logout()
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	provider *wallet.KeyProvider
	session  *wallet.Session
	api      recordClient
	eth      *ethclient.Client
	tx       ledger.TxReader
	abi      string
	engine   *digest.Engine
	files    *services.FileService
	verifier *verify.Orchestrator
	reader   *bufio.Reader
	now      func() time.Time
	closers  []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	abiJSON, err := ledger.LoadABI(c.ContractABIPath)
	if err != nil {
		return nil, fmt.Errorf("load ABI: %w", err)
	}

	a := &App{
		config: c,
		logger: logger,
		abi:    abiJSON,
		engine: digest.NewEngine(logger),
		reader: bufio.NewReader(os.Stdin),
		now:    time.Now,
	}

	var backend wallet.Backend
	if c.RPCURL != "" {
		eth, err := dialLedger(ctx, c.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", c.RPCURL, err)
		}
		a.eth, a.tx, backend = eth, eth, eth
		a.closers = append(a.closers, func() error { eth.Close(); return nil })
	} else {
		logger.Warn(ctx, "no RPC URL configured, ledger features disabled")
	}

	key, err := wallet.LoadKey(c.PrivateKey, c.KeystorePath, func() ([]byte, error) {
		return GetPassword(os.Stdout)
	})
	if err != nil && !errors.Is(err, wallet.ErrNoAccount) {
		a.Close()
		return nil, fmt.Errorf("load wallet key: %w", err)
	}

	var chainID *big.Int
	if c.ChainID != 0 {
		chainID = big.NewInt(c.ChainID)
	}
	a.provider = wallet.NewKeyProvider(key, backend, chainID)
	a.session = wallet.NewSession(a.provider, a.addressStore(), logger)

	api, err := client.NewGRPCClient(c.ServerEndpointAddr, a.provider)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.api = api
	a.closers = append(a.closers, api.Close)

	pinner, err := a.pinner()
	if err != nil {
		logger.Warn(ctx, "pinning disabled", "error", err)
	}

	var ledgerFn services.LedgerFunc
	var reader verify.LedgerReader
	if a.eth != nil {
		ledgerFn = a.ledger
		reader = ledgerReader{a}
	}

	a.files = services.NewFileService(a.engine, a.api, pinner, ledgerFn, a.owner, logger)
	a.verifier = verify.NewOrchestrator(a.engine, verify.NewVerifier(a.api, reader, logger), logger)

	return a, nil
}

func (a *App) addressStore() wallet.AddressStore {
	if a.config.SessionStore == config.SessionRedis {
		rdb := redis.NewClient(&redis.Options{Addr: a.config.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		return wallet.NewRedisAddressStore(rdb, "", 0)
	}
	return wallet.NewFileAddressStore(a.config.SessionFile)
}

// httpClient is bounded only when a request timeout is configured.
func (a *App) httpClient() *http.Client {
	hc := &http.Client{}
	if a.config.RequestTimeout > 0 {
		hc.Timeout = a.config.RequestTimeout
	}
	return hc
}

func (a *App) pinner() (pinning.Pinner, error) {
	switch a.config.PinningBackend {
	case config.PinningS3:
		if a.config.S3.Bucket == "" {
			return nil, errors.New("no S3 bucket configured")
		}
		return pinning.NewS3Pinner(a.config.S3, a.logger), nil
	case config.PinningPinata, "":
		if a.config.PinningJWT == "" {
			return nil, errors.New("no pinning token configured")
		}
		return pinning.NewPinataClient(a.config.PinningEndpoint, a.config.PinningJWT, a.httpClient(), a.logger), nil
	default:
		return nil, fmt.Errorf("unknown pinning backend %q", a.config.PinningBackend)
	}
}

// contract binds the registry. The handle can write only while a wallet is
// connected.
func (a *App) contract(ctx context.Context) (*ledger.Contract, error) {
	if a.eth == nil {
		return nil, fmt.Errorf("no ledger node configured: %w", common.ErrNoProvider)
	}
	cfg := ledger.Config{
		Address:       a.config.ContractAddress,
		ABI:           a.abi,
		ProbeBytecode: a.config.ProbeBytecode,
	}
	if _, ok := a.session.CurrentAddress(); ok {
		return ledger.Resolve(ctx, a.provider, a.eth, cfg, a.logger)
	}
	return ledger.Bind(ctx, a.eth, cfg, a.logger)
}

func (a *App) ledger(ctx context.Context) (services.Ledger, error) {
	c, err := a.contract(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type ledgerReader struct{ a *App }

func (l ledgerReader) FileInfo(ctx context.Context, digest string) (*records.LedgerEntry, error) {
	c, err := l.a.contract(ctx)
	if err != nil {
		return nil, err
	}
	return c.FileInfo(ctx, digest)
}

func (a *App) owner() (string, bool) {
	addr, ok := a.session.CurrentAddress()
	if !ok {
		return "", false
	}
	return addr.Hex(), true
}

func (a *App) contractAddress() string {
	if a.eth == nil {
		return ""
	}
	return a.config.ContractAddress
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

// Run restores the previous wallet session, follows account changes and
// runs the REPL on stdin until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printlnFn("Welcome to docverify (type 'help' for commands)")

	if addr, ok := a.session.Restore(ctx); ok {
		printlnFn("Reconnected as", addr.Hex())
		a.serverLogin(ctx)
	}

	sub := a.session.Watch(ctx)
	defer sub.Unsubscribe()

	progress := make(chan verify.Transition, 8)
	psub := a.verifier.Subscribe(progress)
	defer psub.Unsubscribe()
	go a.showProgress(ctx, progress)

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

func (a *App) showProgress(ctx context.Context, ch <-chan verify.Transition) {
	for {
		select {
		case t := <-ch:
			if t.State == verify.StateHashing || t.State == verify.StateQuerying {
				printlnFn(fmt.Sprintf("... %s", t.State))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) status() string {
	s := "not connected"
	if addr, ok := a.session.CurrentAddress(); ok {
		s = shortAddress(addr.Hex())
	}
	if c := a.files.Current(); c != nil && c.File != nil {
		s += " " + c.File.Info.Name
	}
	return s
}

func (a *App) isConnected() bool {
	_, ok := a.session.CurrentAddress()
	return ok
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

// report prints err once and logs it.
func (a *App) report(ctx context.Context, op string, err error) error {
	a.logger.Error(ctx, op+" failed", "error", err)
	printlnFn("Error:", err.Error())
	return err
}
