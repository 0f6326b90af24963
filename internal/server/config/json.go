package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/rollcall/internal/flagx"
)

// JsonConfig is the on-disk shape of the server configuration file.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn"`
	SeedFile         string `json:"seed_file"`
	TimeZone         string `json:"time_zone"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`
}

// parseJson loads the file named by -c or -config, if any. Empty fields in
// the file leave cfg untouched.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlagFrom(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	for dst, v := range map[*string]string{
		&cfg.EndpointAddrGRPC: c.EndpointAddrGRPC,
		&cfg.DatabaseDSN:      c.DatabaseDSN,
		&cfg.SeedFile:         c.SeedFile,
		&cfg.TimeZone:         c.TimeZone,
		&cfg.LogLevel:         c.LogLevel,
		&cfg.LogFormat:        c.LogFormat,
	} {
		if v != "" {
			*dst = v
		}
	}
	return nil
}
