package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/docverify/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the record server
//	-r string   ledger JSON-RPC URL
//	-n int      chain id (0 asks the node)
//	-k string   registry contract address
//	-i string   contract ABI JSON file
//	-x string   wallet private key, hex
//	-f string   wallet keystore file
//	-p string   pinning backend (pinata or s3)
//	-e string   pinning endpoint
//	-j string   pinning JWT
//	-m string   session store (file or redis)
//	-o string   output directory for certificates and exports
//	-u string   public base URL for verification links
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-r", "-n", "-k", "-i", "-x", "-f", "-p", "-e", "-j", "-m", "-o", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.RPCURL, "r", cfg.RPCURL, "ledger JSON-RPC URL")
	fs.Int64Var(&cfg.ChainID, "n", cfg.ChainID, "chain id")
	fs.StringVar(&cfg.ContractAddress, "k", cfg.ContractAddress, "registry contract address")
	fs.StringVar(&cfg.ContractABIPath, "i", cfg.ContractABIPath, "contract ABI file")
	fs.StringVar(&cfg.PrivateKey, "x", cfg.PrivateKey, "wallet private key (hex)")
	fs.StringVar(&cfg.KeystorePath, "f", cfg.KeystorePath, "wallet keystore file")
	fs.StringVar(&cfg.PinningBackend, "p", cfg.PinningBackend, "pinning backend")
	fs.StringVar(&cfg.PinningEndpoint, "e", cfg.PinningEndpoint, "pinning endpoint")
	fs.StringVar(&cfg.PinningJWT, "j", cfg.PinningJWT, "pinning JWT")
	fs.StringVar(&cfg.SessionStore, "m", cfg.SessionStore, "session store")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "output directory")
	fs.StringVar(&cfg.PublicBaseURL, "u", cfg.PublicBaseURL, "public base URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
