// Package config handles configuration for the reference ledger server,
// including defaults, a JSON overlay, environment variables and
// command-line flags.
package config

import "os"

// Config holds runtime settings for the ledger server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps the ledger in memory.
//   - SeedFile: optional JSON file with events and members loaded at start.
//   - TimeZone: IANA zone for the time echoed back on a successful record.
//   - LogLevel / LogFormat: process logger settings.
type Config struct {
	EndpointAddrGRPC string `env:"GRPC_ADDR"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	SeedFile         string `env:"SEED_FILE"`
	TimeZone         string `env:"TIME_ZONE"`
	LogLevel         string `env:"LOG_LEVEL"`
	LogFormat        string `env:"LOG_FORMAT"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SeedFile = ""
	c.TimeZone = "UTC"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, ROLLCALL_* variables and finally from
// command-line flags.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Args[1:])
}

func LoadConfigFrom(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
