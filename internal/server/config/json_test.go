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
		"endpoint_addr_http": "www.example:9000",
		"hot_dir":            "/srv/hot",
		"cold_dir":           "/srv/cold",
		"registry_path":      "/srv/list.backup",
		"idle_threshold":     "2m",
		"poll_interval":      5000000000,
		"codec":              "lz4",
		"cold_backend":       "s3",
		"registry_backend":   "postgres",
		"database_dsn":       "dsn",
		"s3_root_user":       "user",
		"s3_root_password":   "password",
		"s3_bucket":          "bucket",
		"s3_region":          "region",
		"s3_base_endpoint":   "base_endpoint",
		"metrics_enabled":    false,
		"log_level":          "warn",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{MetricsEnabled: true}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "/srv/hot", cfg.HotDir)
		assert.Equal(t, "/srv/cold", cfg.ColdDir)
		assert.Equal(t, "/srv/list.backup", cfg.RegistryPath)
		assert.Equal(t, 2*time.Minute, cfg.IdleThreshold)
		assert.Equal(t, 5*time.Second, cfg.PollInterval)
		assert.Equal(t, "lz4", cfg.Codec)
		assert.Equal(t, "s3", cfg.ColdBackend)
		assert.Equal(t, "postgres", cfg.RegistryBackend)
		assert.Equal(t, "dsn", cfg.DatabaseDSN)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.False(t, cfg.MetricsEnabled)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"idle_threshold": "10s"})
		os.Args = []string{"testbin", "-c", partial}

		var cfg Config
		cfg.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, 10*time.Second, cfg.IdleThreshold)
		assert.Equal(t, 60*time.Second, cfg.PollInterval)
		assert.Equal(t, "./backup", cfg.HotDir)
		assert.True(t, cfg.MetricsEnabled)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		var cfg, want Config
		cfg.LoadDefaults()
		want.LoadDefaults()
		parseJson(&cfg)

		assert.Equal(t, want, cfg)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}

func TestLoadConfig_SubSecondJSONDurationsSurviveFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"idle_threshold": "1500ms",
		"poll_interval":  "500ms",
	})

	t.Run("no duration flags", func(t *testing.T) {
		os.Args = []string{"server", "-c", path}

		cfg := LoadConfig()
		assert.Equal(t, 1500*time.Millisecond, cfg.IdleThreshold)
		assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("flag overrides only its own field", func(t *testing.T) {
		os.Args = []string{"server", "-c", path, "-p", "7"}

		cfg := LoadConfig()
		assert.Equal(t, 1500*time.Millisecond, cfg.IdleThreshold)
		assert.Equal(t, 7*time.Second, cfg.PollInterval)
	})
}
