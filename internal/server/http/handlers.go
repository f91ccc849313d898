package http

import (
	"net/http"
	"time"

	"github.com/farmdeck/farmsync/internal/api"
	"github.com/farmdeck/farmsync/internal/server/auth"
	"github.com/gorilla/mux"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// handlePull serves GET /sync/changes?since=<RFC3339>. A missing since
// means from the beginning.
func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since: expected RFC3339 timestamp")
			return
		}
		since = t
	}

	res, err := s.sync.Pull(r.Context(), id.TenantID, since)
	if err != nil {
		s.logger.Error(r.Context(), "pull failed", "tenant", id.TenantID, "error", err)
		status, msg := statusFor(err)
		respondError(w, status, msg)
		return
	}

	out := api.PullResponse{
		ServerTime: res.ServerTime,
		Changes:    make([]api.ChangeEntry, 0, len(res.Changes)),
		Tombstones: make([]api.Tombstone, 0, len(res.Tombstones)),
	}
	for _, c := range res.Changes {
		out.Changes = append(out.Changes, c.API())
	}
	for _, t := range res.Tombstones {
		out.Tombstones = append(out.Tombstones, t.API())
	}
	respondJSON(w, http.StatusOK, out)
}

// handleBatch serves POST /sync/batch. Per-action failures are conflicts in
// the body, so the status is always 202 for a well-formed request.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	var req api.BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	resp := s.sync.Apply(r.Context(), id.TenantID, id.UserID, req.Actions)
	respondJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	entity := mux.Vars(r)["entity"]

	items, err := s.records.List(r.Context(), id.TenantID, entity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []api.Record{}
	}
	respondJSON(w, http.StatusOK, api.ListResponse{Items: items})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	vars := mux.Vars(r)

	rec, err := s.records.Get(r.Context(), id.TenantID, vars["entity"], vars["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	entity := mux.Vars(r)["entity"]

	var data api.Record
	if err := decodeBody(w, r, &data); err != nil || data == nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, created, err := s.records.Create(r.Context(), id.TenantID, id.UserID, entity, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, rec)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	vars := mux.Vars(r)

	var patch api.Record
	if err := decodeBody(w, r, &patch); err != nil || patch == nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, err := s.records.Update(r.Context(), id.TenantID, id.UserID, vars["entity"], vars["id"], patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	vars := mux.Vars(r)

	var data api.Record
	if err := decodeBody(w, r, &data); err != nil || data == nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	rec, err := s.records.Upsert(r.Context(), id.TenantID, id.UserID, vars["entity"], vars["id"], data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	vars := mux.Vars(r)

	if err := s.records.Delete(r.Context(), id.TenantID, id.UserID, vars["entity"], vars["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	respondError(w, status, msg)
}
