package config

import (
	"time"

	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/pinning"
)

const (
	PinningPinata = "pinata"
	PinningS3     = "s3"

	SessionFile  = "file"
	SessionRedis = "redis"
)

// Config holds runtime settings for the docverify CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the record server's gRPC endpoint.
//   - RPCURL, ChainID: ledger node; a zero ChainID is asked from the node.
//   - ContractAddress, ContractABIPath, ProbeBytecode: the registry contract.
//   - PrivateKey / KeystorePath: the wallet key, as hex or as an encrypted
//     keystore file whose passphrase is prompted for.
//   - PinningBackend: "pinata" (PinningEndpoint + PinningJWT) or "s3".
//   - SessionStore: where the connected address is remembered, "file"
//     (SessionFile) or "redis" (RedisAddr).
//   - OutputDir: where certificates and exports are written.
//   - RequestTimeout: upper bound of a single network call; zero means no timeout.
type Config struct {
	ServerEndpointAddr string
	RPCURL             string
	ChainID            int64
	ContractAddress    string
	ContractABIPath    string
	ProbeBytecode      bool
	PrivateKey         string
	KeystorePath       string
	PinningBackend     string
	PinningEndpoint    string
	PinningJWT         string
	S3                 pinning.S3Config
	SessionStore       string
	SessionFile        string
	RedisAddr          string
	OutputDir          string
	PublicBaseURL      string
	RequestTimeout     time.Duration
	LogBackend         string
	LogLevel           string
	LogFile            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RPCURL = "http://127.0.0.1:8545"
	c.ChainID = 0
	c.ContractAddress = ledger.DefaultAddress
	c.ContractABIPath = ""
	c.ProbeBytecode = true
	c.PinningBackend = PinningPinata
	c.PinningEndpoint = pinning.DefaultPinataEndpoint
	c.SessionStore = SessionFile
	c.SessionFile = ".docverify-session.json"
	c.RedisAddr = "127.0.0.1:6379"
	c.OutputDir = "."
	c.RequestTimeout = 0
	c.LogBackend = logging.BackendSlog
	c.LogLevel = "warn"
	c.LogFile = "docverify.log"
}

// LogOptions returns the logging settings in the form logging.New takes.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{Backend: c.LogBackend, Level: c.LogLevel, File: c.LogFile, MaxSizeMB: 10, MaxBackups: 3}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
