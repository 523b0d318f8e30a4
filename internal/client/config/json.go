package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docverify/internal/flagx"
	"github.com/dmitrijs2005/docverify/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals are
// timex.Duration so they can be "30s" strings or integer nanoseconds. Absent
// keys leave the current value alone.
type JsonConfig struct {
	ServerEndpointAddr string          `json:"server_endpoint_addr"`
	RPCURL             string          `json:"rpc_url"`
	ChainID            int64           `json:"chain_id"`
	ContractAddress    string          `json:"contract_address"`
	ContractABIPath    string          `json:"contract_abi_path"`
	ProbeBytecode      *bool           `json:"probe_bytecode"`
	KeystorePath       string          `json:"keystore_path"`
	PinningBackend     string          `json:"pinning_backend"`
	PinningEndpoint    string          `json:"pinning_endpoint"`
	PinningJWT         string          `json:"pinning_jwt"`
	S3AccessKey        string          `json:"s3_access_key"`
	S3SecretKey        string          `json:"s3_secret_key"`
	S3Bucket           string          `json:"s3_bucket"`
	S3Region           string          `json:"s3_region"`
	S3BaseEndpoint     string          `json:"s3_base_endpoint"`
	SessionStore       string          `json:"session_store"`
	SessionFile        string          `json:"session_file"`
	RedisAddr          string          `json:"redis_addr"`
	OutputDir          string          `json:"output_dir"`
	PublicBaseURL      string          `json:"public_base_url"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	LogBackend         string          `json:"log_backend"`
	LogLevel           string          `json:"log_level"`
	LogFile            string          `json:"log_file"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Read or unmarshal errors panic.
//
// The private key is never read from JSON; use a keystore file.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.RPCURL, jc.RPCURL)
	if jc.ChainID != 0 {
		cfg.ChainID = jc.ChainID
	}
	setString(&cfg.ContractAddress, jc.ContractAddress)
	setString(&cfg.ContractABIPath, jc.ContractABIPath)
	if jc.ProbeBytecode != nil {
		cfg.ProbeBytecode = *jc.ProbeBytecode
	}
	setString(&cfg.KeystorePath, jc.KeystorePath)
	setString(&cfg.PinningBackend, jc.PinningBackend)
	setString(&cfg.PinningEndpoint, jc.PinningEndpoint)
	setString(&cfg.PinningJWT, jc.PinningJWT)
	setString(&cfg.S3.AccessKey, jc.S3AccessKey)
	setString(&cfg.S3.SecretKey, jc.S3SecretKey)
	setString(&cfg.S3.Bucket, jc.S3Bucket)
	setString(&cfg.S3.Region, jc.S3Region)
	setString(&cfg.S3.BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.SessionStore, jc.SessionStore)
	setString(&cfg.SessionFile, jc.SessionFile)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.OutputDir, jc.OutputDir)
	setString(&cfg.PublicBaseURL, jc.PublicBaseURL)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)
}
