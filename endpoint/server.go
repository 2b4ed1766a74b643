package endpoint

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/event"
	"github.com/uno-framework/uno/offline"
	"github.com/uno-framework/uno/security"
	"github.com/uno-framework/uno/ulog"
)

// Server owns the HTTP surface: generated resource routes, auth, sync,
// websocket events and metrics, behind one ServeMux.
type Server struct {
	Tokens      *security.Tokens
	Permissions *security.Permissions
	Audit       *security.Audit
	Recovery    *security.RecoveryCodes
	Accounts    AccountSource
	Bus         *event.Bus
	Hub         *event.Hub
	Sync        *offline.ServerSync

	mux *http.ServeMux
	mu  sync.Mutex
}

func NewServer(rds *redis.Client) *Server {
	bus := event.NewBus(rds)
	return &Server{
		Tokens:      security.NewTokens(rds),
		Permissions: security.NewPermissions(rds),
		Audit:       security.NewAudit(rds),
		Recovery:    security.NewRecoveryCodes(rds),
		Bus:         bus,
		Hub:         event.NewHub(bus),
		Sync:        offline.NewServerSync(rds),
		mux:         http.NewServeMux(),
	}
}

// AddRoute registers an extra handler, used by plugins to extend the
// surface.
func (s *Server) AddRoute(pattern string, handlerFunc http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mux.HandleFunc(pattern, handlerFunc)
}

// mount wires every route the server serves. Called once from Start.
func (s *Server) mount() {
	s.mountResources()
	s.mountAuth()
	s.mountSync()
	s.mountEvents()
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Start mounts the routes, brings up the permission mirror and the event
// hub and serves until ListenAndServe returns.
func (s *Server) Start(ctx context.Context) error {
	s.mount()
	s.Permissions.Load(ctx)
	s.Hub.Run(ctx)

	server := &http.Server{
		Addr:              ":" + strconv.FormatInt(config.Cfg.Http.Port, 10),
		Handler:           s.withMiddleware(s.mux),
		ReadTimeout:       50 * time.Second,
		ReadHeaderTimeout: 50 * time.Second,
		WriteTimeout:      50 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	ulog.Info().Int64("port", config.Cfg.Http.Port).Msg("uno http server starting")
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
