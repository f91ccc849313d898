package config

import (
	"encoding/json"
	"os"

	"github.com/farmdeck/farmsync/internal/flagx"
	"github.com/farmdeck/farmsync/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration file.
// Durations accept "10s" style strings as well as integer nanoseconds.
// Pointer fields distinguish "absent" from the zero value so that a file
// only overrides what it mentions.
type JsonConfig struct {
	EndpointAddrHTTP string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string          `json:"database_dsn"`
	SecretKey        string          `json:"secret_key"`
	RunMigrations    *bool           `json:"run_migrations"`
	ShutdownTimeout  *timex.Duration `json:"shutdown_timeout"`
	PullLag          *timex.Duration `json:"pull_lag"`
}

// parseJson loads configuration values from the file named by -c/-config
// into config. Without the flag nothing happens. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.EndpointAddrGRPC != nil {
		config.EndpointAddrGRPC = *c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.PullLag != nil {
		config.PullLag = c.PullLag.Duration
	}
}
