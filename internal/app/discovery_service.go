package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/discovery"
)

// DiscoveryService advertises the control server over mDNS.
type DiscoveryService struct {
	cfg        *config.Config
	advertiser *discovery.Advertiser
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(cfg *config.Config) *DiscoveryService {
	return &DiscoveryService{cfg: cfg}
}

// Start advertises the control server if both it and discovery are enabled.
// Failing to advertise is not fatal; the server stays reachable by address.
func (s *DiscoveryService) Start(ctx context.Context) {
	if !s.cfg.Discovery.Enabled || !s.cfg.Server.Enabled {
		return
	}

	advertiser, err := discovery.Advertise(discovery.Advertisement{
		Instance: s.cfg.Discovery.Instance,
		Service:  s.cfg.Discovery.Service,
		Domain:   s.cfg.Discovery.Domain,
		Port:     s.cfg.Server.Port,
		Channels: s.cfg.Board.Channels,
	})
	if err != nil {
		log.Warn().Err(err).Msg("mDNS advertisement unavailable")
		return
	}
	s.advertiser = advertiser

	go func() {
		<-ctx.Done()
		s.Close()
	}()
}

// Close withdraws the advertisement.
func (s *DiscoveryService) Close() {
	if s.advertiser == nil {
		return
	}
	if err := s.advertiser.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop mDNS responder")
	}
}
