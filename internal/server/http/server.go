// Package http exposes the sync and records services as a JSON API routed
// with gorilla/mux. Every route except /health requires a bearer JWT that
// names the tenant.
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/logging"
	"github.com/farmdeck/farmsync/internal/server/services"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds request bodies; a batch is a handful of records.
const maxBodyBytes = 10 << 20

type SyncService interface {
	Apply(ctx context.Context, tenantID, actorID string, actions []api.Action) *api.BatchResponse
	Pull(ctx context.Context, tenantID string, since time.Time) (*services.PullResult, error)
}

type RecordsService interface {
	List(ctx context.Context, tenantID, entity string) ([]api.Record, error)
	Get(ctx context.Context, tenantID, entity, id string) (api.Record, error)
	Create(ctx context.Context, tenantID, actorID, entity string, data api.Record) (api.Record, bool, error)
	Update(ctx context.Context, tenantID, actorID, entity, id string, patch api.Record) (api.Record, error)
	Upsert(ctx context.Context, tenantID, actorID, entity, id string, data api.Record) (api.Record, error)
	Delete(ctx context.Context, tenantID, actorID, entity, id string) error
}

type Server struct {
	address         string
	sync            SyncService
	records         RecordsService
	logger          logging.Logger
	jwtSecret       []byte
	shutdownTimeout time.Duration
}

func NewServer(address string, l logging.Logger, ss SyncService, rs RecordsService, secretKey string, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		sync:            ss,
		records:         rs,
		logger:          l.With("module", "http_server"),
		jwtSecret:       []byte(secretKey),
		shutdownTimeout: shutdownTimeout,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	authed := router.NewRoute().Subrouter()
	authed.Use(s.authenticate)

	authed.HandleFunc("/sync/changes", s.handlePull).Methods(http.MethodGet)
	authed.HandleFunc("/sync/batch", s.handleBatch).Methods(http.MethodPost)

	v1 := authed.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/{entity}", s.handleList).Methods(http.MethodGet)
	v1.HandleFunc("/{entity}", s.handleCreate).Methods(http.MethodPost)
	v1.HandleFunc("/{entity}/{id}", s.handleGet).Methods(http.MethodGet)
	v1.HandleFunc("/{entity}/{id}", s.handleUpdate).Methods(http.MethodPatch)
	v1.HandleFunc("/{entity}/{id}", s.handleUpsert).Methods(http.MethodPut)
	v1.HandleFunc("/{entity}/{id}", s.handleDelete).Methods(http.MethodDelete)

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
		if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
