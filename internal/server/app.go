// Package server wires the record server together: database and migrations,
// optional ledger access, the gRPC record-store service and the public HTTP
// API, with graceful shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/server/config"
	"github.com/dmitrijs2005/docverify/internal/server/httpapi"
	"github.com/dmitrijs2005/docverify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docverify/internal/server/services"
	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/ethereum/go-ethereum/ethclient"

	gs "github.com/dmitrijs2005/docverify/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	eth      *ethclient.Client
	records  *services.RecordService
	auth     *services.AuthService
	verifier *verify.Verifier
	contract string
}

var openDB = repomanager.OpenDB

var dialLedger = ethclient.DialContext

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogOptions())
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{
		config:  c,
		logger:  logger,
		db:      db,
		records: services.NewRecordService(db, m),
		auth:    services.NewAuthService(c),
	}

	var led verify.LedgerReader
	if c.RPCURL != "" {
		contract, err := app.bindLedger(ctx)
		if err != nil {
			app.Close()
			return nil, err
		}
		led = contract
		app.contract = contract.Address().Hex()
	} else {
		logger.Warn(ctx, "no RPC URL configured, ledger lookups disabled")
	}
	app.verifier = verify.NewVerifier(app.records, led, logger)

	return app, nil
}

func (app *App) bindLedger(ctx context.Context) (*ledger.Contract, error) {
	abiJSON, err := ledger.LoadABI(app.config.ContractABIPath)
	if err != nil {
		return nil, fmt.Errorf("load ABI: %w", err)
	}

	eth, err := dialLedger(ctx, app.config.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", app.config.RPCURL, err)
	}
	app.eth = eth

	return ledger.Bind(ctx, eth, ledger.Config{
		Address:       app.config.ContractAddress,
		ABI:           abiJSON,
		ProbeBytecode: app.config.ProbeBytecode,
	}, app.logger)
}

// Close releases the database and ledger connections.
func (app *App) Close() {
	if app.eth != nil {
		app.eth.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.records, app.auth)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	deps := httpapi.Deps{
		Records:  app.records,
		Verifier: app.verifier,
		Hasher:   digest.NewEngine(app.logger),
		DB:       app.db,
	}
	if app.eth != nil {
		deps.Tx = app.eth
	}

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, deps, httpapi.Options{
		Contract:       app.contract,
		PublicBaseURL:  app.config.PublicBaseURL,
		MaxUploadBytes: app.config.MaxUploadBytes,
	})
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a signal arrives or ctx is done.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(context.Background(), "App stopped")
}
