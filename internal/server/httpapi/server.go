// Package httpapi is the public read-only HTTP API: record listings,
// verification by digest or upload, transaction decoding, CSV export,
// certificates, health and metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docverify/internal/digest"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/verify"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Looker runs a verification lookup.
type Looker interface {
	Lookup(ctx context.Context, q verify.Query) *verify.Result
}

// Hasher computes the digests of uploaded content.
type Hasher interface {
	Compute(ctx context.Context, data []byte) (digest.Set, error)
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the API. Tx and DB may be nil.
type Deps struct {
	Records  records.Reader
	Verifier Looker
	Hasher   Hasher
	Tx       ledger.TxReader
	DB       Pinger
}

// Options tune the API.
type Options struct {
	Contract       string
	PublicBaseURL  string
	MaxUploadBytes int64
}

type HTTPServer struct {
	address  string
	deps     Deps
	opts     Options
	registry *prometheus.Registry
	metrics  *Metrics
	logger   logging.Logger
	now      func() time.Time
	server   *http.Server
}

func NewHTTPServer(address string, l logging.Logger, deps Deps, opts Options) *HTTPServer {
	registry, metrics := NewRegistry()
	s := &HTTPServer{
		address:  address,
		deps:     deps,
		opts:     opts,
		registry: registry,
		metrics:  metrics,
		logger:   l.With("module", "http_server"),
		now:      time.Now,
	}
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the gin engine with every route registered.
func (s *HTTPServer) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.metrics.middleware())
	router.Use(s.loggerMiddleware())

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})))

	api := router.Group("/api")
	api.GET("/files", s.listFiles)
	api.GET("/files/owner/:address", s.filesByOwner)
	api.GET("/files/cid/:cid", s.filesByCID)
	api.GET("/stats/:address", s.stats)
	api.GET("/verify/:digest", s.verifyDigest)
	api.POST("/verify", s.verifyUpload)
	api.GET("/tx/:hash", s.decodeTx)
	api.GET("/export/:address", s.exportCSV)
	api.GET("/certificate/:digest", s.certificate)

	return router
}

func (s *HTTPServer) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

// Serve handles requests on lis until ctx is done.
func (s *HTTPServer) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}
