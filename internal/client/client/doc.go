// Package client talks to the farmsync server over HTTP and decides whether
// it is reachable.
//
// HTTPClient covers the sync endpoints (batch apply and change pull) and the
// record CRUD endpoints. Non-2xx responses are mapped onto the sentinel
// errors of this package so callers can branch with errors.Is:
//
//	401/403      ErrUnauthorized
//	404          ErrNotFound
//	409          ErrConflict
//	400/422      ErrValidation
//	502/503/504  ErrUnavailable
//
// Transport failures are wrapped in ErrUnavailable as well. Classifier sorts
// any error into CONNECTIVITY, VALIDATION or OTHER; the sync orchestrator
// queues a write only for CONNECTIVITY.
//
// Connectivity is checked through a Prober: HTTPClient.Ping calls GET
// /health, GRPCProber runs the standard gRPC health check.
package client
