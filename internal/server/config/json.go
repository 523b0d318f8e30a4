package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docverify/internal/flagx"
	"github.com/dmitrijs2005/docverify/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "1m" strings
// or integer nanoseconds. Absent keys leave the current value alone.
type JsonConfig struct {
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string          `json:"endpoint_addr_http"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	LoginWindow                 *timex.Duration `json:"login_window"`
	RPCURL                      string          `json:"rpc_url"`
	ContractAddress             string          `json:"contract_address"`
	ContractABIPath             string          `json:"contract_abi_path"`
	ProbeBytecode               *bool           `json:"probe_bytecode"`
	PublicBaseURL               string          `json:"public_base_url"`
	MaxUploadBytes              int64           `json:"max_upload_bytes"`
	LogBackend                  string          `json:"log_backend"`
	LogLevel                    string          `json:"log_level"`
	LogFile                     string          `json:"log_file"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays the JSON file named by -c/-config, if any. A file that
// cannot be read or parsed panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JSONConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.LoginWindow != nil {
		config.LoginWindow = c.LoginWindow.Duration
	}
	setString(&config.RPCURL, c.RPCURL)
	setString(&config.ContractAddress, c.ContractAddress)
	setString(&config.ContractABIPath, c.ContractABIPath)
	if c.ProbeBytecode != nil {
		config.ProbeBytecode = *c.ProbeBytecode
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
}
