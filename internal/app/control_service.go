package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/eventbus"
	"github.com/dokzlo13/dashd/internal/ledger"
	"github.com/dokzlo13/dashd/internal/server"
)

// ControlService wraps the HTTP control server.
type ControlService struct {
	cfg    *config.Config
	server *server.Server
}

// NewControlService creates a new ControlService. GET /history is served
// when l is not nil.
func NewControlService(cfg *config.Config, ctrl server.Controller, cache server.StatusCache, bus *eventbus.Bus, l *ledger.Ledger) *ControlService {
	srv := server.NewServer(
		cfg.Server.Host,
		cfg.Server.Port,
		ctrl,
		cache,
		bus,
		cfg.Server.RateLimitRPS,
		cfg.Server.Burst,
	)
	if l != nil {
		srv.SetHistory(l)
	}
	return &ControlService{
		cfg:    cfg,
		server: srv,
	}
}

// Start begins the control server if enabled.
func (s *ControlService) Start(ctx context.Context) {
	if !s.cfg.Server.Enabled {
		log.Debug().Msg("Control server disabled")
		return
	}

	go func() {
		if err := s.server.Run(ctx, s.cfg.GetShutdownTimeout()); err != nil {
			log.Error().Err(err).Msg("Control server error")
		}
	}()
}
