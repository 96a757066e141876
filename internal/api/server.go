// Package api wires the gin HTTP router: CORS, bearer authentication, the
// OpenAI-compatible chat completions endpoint, and a liveness probe.
package api

import (
	"sync/atomic"

	"github.com/kiroproxy/gateway/internal/config"
	"github.com/kiroproxy/gateway/internal/kiroprovider"
	"github.com/kiroproxy/gateway/internal/requestlog"
)

// Server holds the dependencies every handler needs: the upstream provider,
// the request logger, and a hot-reloadable config snapshot.
type Server struct {
	provider *kiroprovider.Provider
	logs     *requestlog.Logger
	cfg      atomic.Pointer[config.Config]
}

// NewServer builds a Server around the given provider, request logger, and
// initial config.
func NewServer(provider *kiroprovider.Provider, logs *requestlog.Logger, cfg *config.Config) *Server {
	s := &Server{provider: provider, logs: logs}
	s.cfg.Store(cfg)
	return s
}

// UpdateConfig swaps the live config snapshot, e.g. on a hot-reload.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.cfg.Store(cfg)
}

func (s *Server) config() *config.Config {
	return s.cfg.Load()
}
