package app

import (
	"context"

	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/db"
	"github.com/dokzlo13/dashd/internal/eventbus"
	"github.com/dokzlo13/dashd/internal/ledger"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// High-level services
	Board     *BoardService
	Status    *StatusService
	Control   *ControlService
	Health    *HealthService
	History   *LedgerService
	Discovery *DiscoveryService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database and ledger
	if cfg.Ledger.IsEnabled() {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
	}

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Status subscribers must be registered before the board publishes anything
	s.Status = NewStatusService(s.Ledger)
	s.Status.Register(s.Bus)

	var err error
	s.Board, err = NewBoardService(cfg, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Control = NewControlService(cfg, s.Board.Loop, s.Status, s.Bus, s.Ledger)
	s.Health = NewHealthService(cfg, s.Board.Loop)
	s.History = NewLedgerService(cfg, s.Ledger)
	s.Discovery = NewDiscoveryService(cfg)

	return s, nil
}

// Start starts all services in the correct order.
func (s *Services) Start(ctx context.Context) error {
	// Health first so the process is observable during the self-test
	s.Health.Start(ctx)

	if err := s.Board.Start(ctx); err != nil {
		return err
	}

	s.Control.Start(ctx)
	s.Discovery.Start(ctx)
	s.History.Start(ctx)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Discovery != nil {
		s.Discovery.Close()
	}
	if s.Board != nil {
		s.Board.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
