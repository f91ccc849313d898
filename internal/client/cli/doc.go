// Package cli is the farmsync client command line.
//
// Every command opens the local database named by -f, so records can be
// created, listed and queued without a server. Writes go to the server when
// it is reachable and are queued otherwise; "sync" runs one reconciliation
// cycle and "watch" keeps syncing until interrupted.
package cli
