package endpoint

import (
	"net/http"
	"strconv"

	"github.com/uno-framework/uno/offline"
	"github.com/uno-framework/uno/vars"
)

func (s *Server) mountSync() {
	s.mux.HandleFunc("POST /sync/push", s.requireAuth(s.handleSyncPush))
	s.mux.HandleFunc("GET /sync/pull", s.requireAuth(s.handleSyncPull))
}

func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Changes []offline.Change `json:"changes"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, r, vars.Wrap(vars.CodeEndpoint, "syncPush", err))
		return
	}
	result, err := s.Sync.Apply(r.Context(), req.Changes)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, result)
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	limit := 128
	if n, err := strconv.Atoi(r.FormValue("limit")); err == nil && n > 0 && n <= maxListLimit {
		limit = n
	}
	changes, next, err := s.Sync.Feed(r.Context(), r.FormValue("cursor"), limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if changes == nil {
		changes = []offline.Change{}
	}
	respond(w, r, http.StatusOK, map[string]interface{}{"changes": changes, "next": next})
}
