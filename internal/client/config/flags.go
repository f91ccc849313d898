package config

import "time"

// FlagSet is the part of *pflag.FlagSet used to bind client flags; cobra's
// PersistentFlags() satisfies it.
type FlagSet interface {
	StringVarP(p *string, name, shorthand string, value string, usage string)
	IntVarP(p *int, name, shorthand string, value int, usage string)
}

// Flags holds flag values that need conversion after parsing.
type Flags struct {
	cfg                 *Config
	onlineCheckInterval int
	syncInterval        int
	requestTimeout      int
}

// BindFlags registers the client flags on fs with the current values of c
// as defaults. String flags write straight into c; interval flags are given
// in seconds and land in c when Apply is called after parsing.
func (c *Config) BindFlags(fs FlagSet) *Flags {
	f := &Flags{cfg: c}

	fs.StringVarP(&c.ServerURL, "server", "a", c.ServerURL, "base URL of the sync server")
	fs.StringVarP(&c.GRPCAddr, "grpc", "g", c.GRPCAddr, "address of the gRPC health endpoint (empty: HTTP /health)")
	fs.StringVarP(&c.DBPath, "db", "f", c.DBPath, "path of the local database")
	fs.StringVarP(&c.AccessToken, "token", "k", c.AccessToken, "bearer access token")
	fs.IntVarP(&f.onlineCheckInterval, "online-check", "i", int(c.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVarP(&f.syncInterval, "sync-interval", "y", int(c.SyncInterval.Seconds()), "sync interval while online (in seconds)")
	fs.IntVarP(&f.requestTimeout, "timeout", "r", int(c.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVarP(&c.LogFile, "log", "l", c.LogFile, "log file")

	return f
}

// Apply copies the parsed interval flags into the Config.
func (f *Flags) Apply() {
	f.cfg.OnlineCheckInterval = time.Duration(f.onlineCheckInterval) * time.Second
	f.cfg.SyncInterval = time.Duration(f.syncInterval) * time.Second
	f.cfg.RequestTimeout = time.Duration(f.requestTimeout) * time.Second
}
