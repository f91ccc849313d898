package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/farmdeck/farmsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func startHealthServer(t *testing.T) (string, *health.Server) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return lis.Addr().String(), hs
}

func TestGRPCProber_ServingAndNotServing(t *testing.T) {
	addr, hs := startHealthServer(t)
	p, err := NewGRPCProber(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hs.SetServingStatus(common.HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	require.NoError(t, p.Ping(ctx))

	hs.SetServingStatus(common.HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	err = p.Ping(ctx)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, ClassConnectivity, DefaultClassifier{}.Classify(err))
}

func TestGRPCProber_UnknownServiceIsUnavailable(t *testing.T) {
	addr, _ := startHealthServer(t)
	p, err := NewGRPCProber(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.ErrorIs(t, p.Ping(ctx), ErrUnavailable)
}

func TestGRPCProber_NoServer(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	p, err := NewGRPCProber(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.ErrorIs(t, p.Ping(ctx), ErrUnavailable)
}
