package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", "tok", 2*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBatch_SendsActionsWithBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync/batch", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req api.BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Actions, 1)
		assert.Equal(t, "a1", req.Actions[0].ClientID)

		writeJSON(w, http.StatusAccepted, api.BatchResponse{
			Applied: []api.AppliedAction{{ClientID: "a1", Status: api.StatusApplied, Entity: "mobs", Op: api.OpCreate, EntityID: "m1"}},
		})
	})

	resp, err := c.Batch(context.Background(), []api.Action{{ClientID: "a1", Entity: "mobs", Op: api.OpCreate, Data: api.Record{"id": "m1"}}})
	require.NoError(t, err)
	require.Len(t, resp.Applied, 1)
	assert.Equal(t, "m1", resp.Applied[0].EntityID)
}

func TestPull_SinceParameter(t *testing.T) {
	var gotQuery []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = append(gotQuery, r.URL.Query().Get("since"))
		writeJSON(w, http.StatusOK, api.PullResponse{ServerTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	})
	ctx := context.Background()

	_, err := c.Pull(ctx, time.Time{})
	require.NoError(t, err)

	since := time.Date(2025, 2, 3, 4, 5, 6, 7000, time.FixedZone("NZ", 13*3600))
	resp, err := c.Pull(ctx, since)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "2025-02-02T15:05:06.000007Z"}, gotQuery)
	assert.True(t, resp.ServerTime.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRecords_CRUD(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /api/v1/paddocks":
			writeJSON(w, http.StatusOK, api.ListResponse{Items: []api.Record{{"id": "p1"}}})
		case "GET /api/v1/paddocks/p1":
			writeJSON(w, http.StatusOK, api.Record{"id": "p1", "name": "North"})
		case "POST /api/v1/paddocks":
			var in api.Record
			_ = json.NewDecoder(r.Body).Decode(&in)
			in["id"] = "p2"
			writeJSON(w, http.StatusCreated, in)
		case "PATCH /api/v1/paddocks/p1":
			writeJSON(w, http.StatusOK, api.Record{"id": "p1", "name": "South"})
		case "DELETE /api/v1/paddocks/p1":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	list, err := c.List(ctx, "paddocks")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	rec, err := c.Get(ctx, "paddocks", "p1")
	require.NoError(t, err)
	assert.Equal(t, "North", rec["name"])

	rec, err = c.Create(ctx, "paddocks", api.Record{"name": "East"})
	require.NoError(t, err)
	assert.Equal(t, "p2", rec.ID())

	rec, err = c.Update(ctx, "paddocks", "p1", api.Record{"name": "South"})
	require.NoError(t, err)
	assert.Equal(t, "South", rec["name"])

	require.NoError(t, c.Delete(ctx, "paddocks", "p1"))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusBadRequest, ErrValidation},
		{http.StatusUnprocessableEntity, ErrValidation},
		{http.StatusBadGateway, ErrUnavailable},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{http.StatusGatewayTimeout, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, api.ErrorResponse{Error: "name: is required"})
			})
			_, err := c.Get(context.Background(), "paddocks", "p1")
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "name: is required")
		})
	}
}

func TestMapError_UnmappedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	})

	_, err := c.Get(context.Background(), "paddocks", "p1")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTeapot, se.Code)
	assert.Equal(t, "teapot", se.Message)
	assert.Equal(t, ClassOther, DefaultClassifier{}.Classify(err))
}

func TestTransportError_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, "", time.Second)
	err := c.Ping(context.Background())

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, ClassConnectivity, DefaultClassifier{}.Classify(err))
}

func TestTransportError_CallerCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Ping(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestPing_Healthy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
	})
	require.NoError(t, c.Ping(context.Background()))
}
