package endpoint

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/ulog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		cores := config.Cfg.Http.CORES
		return cores == "*" || strings.Contains(cores, r.Header.Get("Origin"))
	},
}

func (s *Server) mountEvents() {
	s.mux.HandleFunc("GET /ws/events", s.requireAuth(s.handleEvents))
}

// handleEvents upgrades the connection and attaches it to the hub with
// the topic patterns from the topics query param, all topics by default.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var patterns []string
	if topics := r.URL.Query().Get("topics"); topics != "" {
		patterns = strings.Split(topics, ",")
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ulog.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.Hub.Attach(uuid.NewString(), conn, patterns)
}
