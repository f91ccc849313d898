package config

import "time"

// Config holds runtime settings for the farmsync client.
type Config struct {
	ServerURL           string
	GRPCAddr            string
	DBPath              string
	AccessToken         string
	OnlineCheckInterval time.Duration
	SyncInterval        time.Duration
	RequestTimeout      time.Duration
	LogFile             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = ""
	c.DBPath = "farmsync.db"
	c.AccessToken = ""
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncInterval = 30 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.LogFile = "farmsync-client.log"
}

// LoadConfig constructs a Config from defaults overlaid with the JSON file
// named by -c/-config, if any. Flags are applied later by the CLI through
// BindFlags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	return cfg
}
