package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophbackup/internal/flagx"
	"github.com/dmitrijs2005/gophbackup/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// "30s" or integer nanoseconds; absent keys leave the current value alone.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	HotDir           string         `json:"hot_dir"`
	ColdDir          string         `json:"cold_dir"`
	RegistryPath     string         `json:"registry_path"`
	IdleThreshold    timex.Duration `json:"idle_threshold"`
	PollInterval     timex.Duration `json:"poll_interval"`
	Codec            string         `json:"codec"`
	ColdBackend      string         `json:"cold_backend"`
	RegistryBackend  string         `json:"registry_backend"`
	DatabaseDSN      string         `json:"database_dsn"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	MetricsEnabled   *bool          `json:"metrics_enabled"`
	LogLevel         string         `json:"log_level"`
}

// parseJson overlays values from the file named by -c / -config onto config.
// No flag means no file. An unreadable or invalid file panics, the same as a
// bad command line.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
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

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.HotDir, c.HotDir)
	setString(&config.ColdDir, c.ColdDir)
	setString(&config.RegistryPath, c.RegistryPath)
	if c.IdleThreshold.Duration != 0 {
		config.IdleThreshold = c.IdleThreshold.Duration
	}
	if c.PollInterval.Duration != 0 {
		config.PollInterval = c.PollInterval.Duration
	}
	setString(&config.Codec, c.Codec)
	setString(&config.ColdBackend, c.ColdBackend)
	setString(&config.RegistryBackend, c.RegistryBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MetricsEnabled != nil {
		config.MetricsEnabled = *c.MetricsEnabled
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
