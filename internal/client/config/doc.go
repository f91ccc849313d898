// Package config loads runtime configuration for the farmsync client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags bound by the CLI (see (*Config).BindFlags), which
//     override earlier values.
//
// Supported flags
//
//	-a string   base URL of the sync server
//	-g string   host:port of the gRPC health endpoint (empty: probe GET /health)
//	-f string   path of the local SQLite database
//	-k string   bearer access token
//	-i int      online check interval (seconds)
//	-y int      sync interval while online (seconds)
//	-r int      per-request timeout (seconds)
//	-l string   log file
//
// # JSON schema
//
// Intervals use timex.Duration, so values are either strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "db_path": "farmsync.db",
//	  "access_token": "eyJ...",
//	  "online_check_interval": "3s",
//	  "sync_interval": "30s",
//	  "request_timeout": "10s",
//	  "log_file": "farmsync-client.log"
//	}
package config
