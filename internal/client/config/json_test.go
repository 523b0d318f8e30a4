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

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_endpoint_addr": "www.example:9000",
		"chain_id":             31337,
		"probe_bytecode":       false,
		"pinning_backend":      "s3",
		"s3_bucket":            "pins",
		"s3_region":            "eu-central-1",
		"session_store":        "redis",
		"redis_addr":           "cache:6379",
		"request_timeout":      "10s",
		"private_key":          "0xdead",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.ServerEndpointAddr)
		assert.EqualValues(t, 31337, cfg.ChainID)
		assert.False(t, cfg.ProbeBytecode)
		assert.Equal(t, PinningS3, cfg.PinningBackend)
		assert.Equal(t, "pins", cfg.S3.Bucket)
		assert.Equal(t, "eu-central-1", cfg.S3.Region)
		assert.Equal(t, SessionRedis, cfg.SessionStore)
		assert.Equal(t, "cache:6379", cfg.RedisAddr)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
		assert.Empty(t, cfg.PrivateKey)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{ServerEndpointAddr: "defaults:1234", RequestTimeout: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.ServerEndpointAddr)
		assert.Equal(t, 42*time.Second, cfg.RequestTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
