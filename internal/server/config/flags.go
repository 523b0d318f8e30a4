package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/docverify/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r string   ledger JSON-RPC URL
//	-k string   registry contract address
//	-i string   contract ABI JSON file
//	-u string   public base URL for verification links
//	-l string   log level (debug, info, warn, error)
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-d", "-s", "-t", "-r", "-k", "-i", "-u", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.RPCURL, "r", config.RPCURL, "ledger JSON-RPC URL")
	fs.StringVar(&config.ContractAddress, "k", config.ContractAddress, "registry contract address")
	fs.StringVar(&config.ContractABIPath, "i", config.ContractABIPath, "contract ABI file")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
