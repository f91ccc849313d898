package config

import (
	"encoding/json"
	"os"

	"github.com/farmdeck/farmsync/internal/flagx"
	"github.com/farmdeck/farmsync/internal/timex"
)

// JsonConfig is the on-disk shape of the client configuration file.
type JsonConfig struct {
	ServerURL           string          `json:"server_url"`
	GRPCAddr            *string         `json:"grpc_addr"`
	DBPath              string          `json:"db_path"`
	AccessToken         string          `json:"access_token"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	SyncInterval        *timex.Duration `json:"sync_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	LogFile             string          `json:"log_file"`
}

// parseJson overlays config with the file named by -c/-config. Without the
// flag nothing happens. An unreadable file or invalid JSON panics.
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	if c.ServerURL != "" {
		config.ServerURL = c.ServerURL
	}
	if c.GRPCAddr != nil {
		config.GRPCAddr = *c.GRPCAddr
	}
	if c.DBPath != "" {
		config.DBPath = c.DBPath
	}
	if c.AccessToken != "" {
		config.AccessToken = c.AccessToken
	}
	if c.OnlineCheckInterval != nil {
		config.OnlineCheckInterval = c.OnlineCheckInterval.Duration
	}
	if c.SyncInterval != nil {
		config.SyncInterval = c.SyncInterval.Duration
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.LogFile != "" {
		config.LogFile = c.LogFile
	}
}
