// Package common contains shared constants and sentinel errors used across
// farmsync components.
package common

const (
	// AuthorizationHeaderName carries the bearer token on HTTP requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the JWT in the Authorization header.
	BearerPrefix = "Bearer "

	// TimeFormat is the wire format of every timestamp exchanged by the sync
	// protocol, including the watermark.
	TimeFormat = "2006-01-02T15:04:05.999999999Z07:00"
)

// HealthServiceName is the gRPC health-check service reported by the server
// and probed by the client.
const HealthServiceName = "farmsync.Sync"
