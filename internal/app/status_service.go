package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/eventbus"
	"github.com/dokzlo13/dashd/internal/ledger"
)

// StatusService subscribes to board and command events. It keeps the latest
// published status and records events in the ledger.
type StatusService struct {
	ledger *ledger.Ledger

	mu     sync.RWMutex
	latest string
	seen   bool
}

// NewStatusService creates a StatusService. l may be nil to skip recording.
func NewStatusService(l *ledger.Ledger) *StatusService {
	return &StatusService{ledger: l}
}

// Register subscribes the service to bus events.
func (s *StatusService) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.EventTypeStatus, s.handleStatus)
	bus.Subscribe(eventbus.EventTypeCommand, s.handleCommand)
}

// Latest returns the most recently published status.
func (s *StatusService) Latest() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.seen
}

func (s *StatusService) handleStatus(event eventbus.Event) {
	status := event.String("status")

	s.mu.Lock()
	s.latest = status
	s.seen = true
	s.mu.Unlock()

	log.Info().Str("status", status).Msg("Status published")

	s.record(ledger.EventStatusPublished, event, "board")
}

func (s *StatusService) handleCommand(event eventbus.Event) {
	eventType := ledger.EventCommandRejected
	if accepted, _ := event.Data["accepted"].(bool); accepted {
		eventType = ledger.EventCommandAccepted
	}
	s.record(eventType, event, "http")
}

func (s *StatusService) record(eventType ledger.EventType, event eventbus.Event, source string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Append(eventType, event.ID, source, event.Time, event.Data); err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to record ledger entry")
	}
}
