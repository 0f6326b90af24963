package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the rollcall capture terminal.
//
// Fields:
//   - ServerEndpointAddr: host:port of the ledger gRPC endpoint.
//   - OnlineCheckInterval: how often the terminal checks ledger reachability.
//   - RequestTimeout: upper bound for one ledger call; an expired call is
//     treated as the ledger being unreachable.
//   - DatabasePath: SQLite file holding the offline queue and cached data.
//   - TimeZone: IANA zone used to render recorded times ("" means UTC).
//   - LogLevel, LogFormat: diagnostics written to stderr.
type Config struct {
	ServerEndpointAddr  string        `env:"SERVER_ADDR"`
	OnlineCheckInterval time.Duration `env:"ONLINE_CHECK_INTERVAL"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	DatabasePath        string        `env:"DATABASE_PATH"`
	TimeZone            string        `env:"TIME_ZONE"`
	LogLevel            string        `env:"LOG_LEVEL"`
	LogFormat           string        `env:"LOG_FORMAT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 5 * time.Second
	c.DatabasePath = "rollcall.db"
	c.TimeZone = "UTC"
	c.LogLevel = "warn"
	c.LogFormat = "text"
}

// LoadConfig builds a Config from defaults, the JSON file named by -c or
// -config, ROLLCALL_* environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Args[1:])
}

// LoadConfigFrom is LoadConfig over an explicit argument list.
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
