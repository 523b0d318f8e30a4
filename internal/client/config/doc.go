// Package config loads runtime configuration for the docverify CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "rpc_url": "https://sepolia.example.org",
//	  "chain_id": 11155111,
//	  "keystore_path": "wallet.json",
//	  "pinning_backend": "s3",
//	  "s3_bucket": "docverify-pins",
//	  "session_store": "redis",
//	  "redis_addr": "127.0.0.1:6379",
//	  "request_timeout": "30s"
//	}
//
// The wallet private key is accepted only from the -x flag.
package config
