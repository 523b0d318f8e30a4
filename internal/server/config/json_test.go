package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr_grpc":             "www.example:9000",
		"database_dsn":                   "postgres://x",
		"access_token_validity_duration": "2h",
		"login_window":                   float64(time.Minute),
		"probe_bytecode":                 false,
		"log_backend":                    "zap",
		"log_file":                       "/var/log/docverify.log",
		"max_upload_bytes":               1024,
	})

	t.Run("overlays present keys only", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "secretKey", cfg.SecretKey)
		assert.Equal(t, 2*time.Hour, cfg.AccessTokenValidityDuration)
		assert.Equal(t, time.Minute, cfg.LoginWindow)
		assert.False(t, cfg.ProbeBytecode)
		assert.Equal(t, "zap", cfg.LogBackend)
		assert.Equal(t, "/var/log/docverify.log", cfg.LogFile)
		assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
	})

	t.Run("no file requested", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, &Config{}, cfg)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", bad}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
