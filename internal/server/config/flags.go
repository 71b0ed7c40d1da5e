package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophbackup/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":9000")
//	-o string   hot storage directory
//	-z string   cold storage directory
//	-f string   registry snapshot file (or sqlite database file)
//	-i int      idle threshold, seconds
//	-p int      scheduler poll interval, seconds
//	-k string   codec: gzip, zstd or lz4
//	-b string   cold backend: fs or s3
//	-r string   registry backend: file, sqlite or postgres
//	-d string   PostgreSQL DSN
//	-u string   S3 root user
//	-w string   S3 root password
//	-s string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-m bool     expose /metrics
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-o", "-z", "-f", "-i", "-p", "-k", "-b", "-r", "-d", "-u", "-w", "-s", "-g", "-e", "-m", "-l"},
		"-m")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.HotDir, "o", config.HotDir, "hot storage directory")
	fs.StringVar(&config.ColdDir, "z", config.ColdDir, "cold storage directory")
	fs.StringVar(&config.RegistryPath, "f", config.RegistryPath, "registry snapshot file")

	idleThreshold := fs.Int("i", int(config.IdleThreshold.Seconds()), "idle threshold (in seconds)")
	pollInterval := fs.Int("p", int(config.PollInterval.Seconds()), "tiering poll interval (in seconds)")

	fs.StringVar(&config.Codec, "k", config.Codec, "cold tier codec: gzip, zstd, lz4")
	fs.StringVar(&config.ColdBackend, "b", config.ColdBackend, "cold backend: fs or s3")
	fs.StringVar(&config.RegistryBackend, "r", config.RegistryBackend, "registry backend: file, sqlite or postgres")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "w", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "s", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.MetricsEnabled, "m", config.MetricsEnabled, "expose prometheus metrics")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// durations from JSON may be finer than a second; only explicit flags override them
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			config.IdleThreshold = time.Duration(*idleThreshold) * time.Second
		case "p":
			config.PollInterval = time.Duration(*pollInterval) * time.Second
		}
	})
}
