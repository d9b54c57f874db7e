package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/ambient"
	"github.com/dokzlo13/dashd/internal/board"
	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/engine"
	"github.com/dokzlo13/dashd/internal/eventbus"
	"github.com/dokzlo13/dashd/internal/palette"
	"github.com/dokzlo13/dashd/internal/protocol"
	"github.com/dokzlo13/dashd/internal/render"
)

// BoardService wires the board, its parser, the brightness filter and the
// renderer into the control loop.
type BoardService struct {
	cfg *config.Config

	Board    *board.Board
	Parser   *protocol.Parser
	Renderer render.Renderer
	Loop     *engine.Loop

	done chan struct{}
}

// NewBoardService builds the board from configuration. Statuses are published
// to bus.
func NewBoardService(cfg *config.Config, bus *eventbus.Bus) (*BoardService, error) {
	colors, err := palette.FromConfig(cfg.Palette)
	if err != nil {
		return nil, fmt.Errorf("invalid palette: %w", err)
	}
	if cfg.PaletteScript != "" {
		if err := palette.RunScript(cfg.PaletteScript, &colors); err != nil {
			return nil, err
		}
	}

	b, err := board.New(cfg.Board.Channels, colors, board.Params{
		FadeFrames:  cfg.Board.FadeFrames(),
		RestingHeat: cfg.Brightness.ColdValue(),
	})
	if err != nil {
		return nil, err
	}
	if len(cfg.Board.Mapping) > 0 {
		if err := b.Remap(cfg.Board.Mapping); err != nil {
			return nil, fmt.Errorf("invalid board mapping: %w", err)
		}
	}

	parser := protocol.NewParser(b, &statusPublisher{bus: bus})

	filter := ambient.NewFilter(ambient.Settings{
		Window: cfg.Sensor.Window,
		Curve:  cfg.Sensor.Curve,
		MaxRaw: cfg.Sensor.MaxRaw,
		Low:    cfg.Brightness.LowValue(),
		High:   cfg.Brightness.HighValue(),
	})

	renderer, err := render.New(cfg.Render)
	if err != nil {
		return nil, err
	}

	loop := engine.New(b, parser, filter, newSensor(cfg.Sensor), renderer, engine.Settings{
		FramePeriod:    cfg.Board.FramePeriod(),
		CooldownPeriod: board.CooldownPeriod(cfg.Cooldown.Duration.Duration(), cfg.Brightness.ColdValue()),
		SensorPeriod:   cfg.Sensor.Interval.Duration(),
		SelfTestStep:   cfg.Board.SelfTestStep.Duration(),
	})

	log.Info().
		Int("channels", b.Len()).
		Int("fade_frames", cfg.Board.FadeFrames()).
		Str("render", cfg.Render.Driver).
		Str("sensor", cfg.Sensor.Driver).
		Msg("Board configured")

	return &BoardService{
		cfg:      cfg,
		Board:    b,
		Parser:   parser,
		Renderer: renderer,
		Loop:     loop,
	}, nil
}

// Start runs the self-test, if enabled, and then the control loop.
func (s *BoardService) Start(ctx context.Context) error {
	if s.cfg.Board.IsSelfTestEnabled() {
		if err := s.Loop.SelfTest(ctx); err != nil {
			return fmt.Errorf("self-test interrupted: %w", err)
		}
	}

	// The loop goroutine is the only one that touches the board from here on
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Loop.Run(ctx)
	}()
	return nil
}

// Close stops the loop and releases the renderer.
func (s *BoardService) Close() {
	if s.Loop != nil {
		s.Loop.Close()
	}
	// The renderer belongs to the loop goroutine until it exits
	if s.done != nil {
		select {
		case <-s.done:
		case <-time.After(s.cfg.GetShutdownTimeout()):
			log.Warn().Msg("Control loop did not stop in time")
		}
	}
	if s.Renderer != nil {
		if err := s.Renderer.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close renderer")
		}
	}
}

func newSensor(cfg config.SensorConfig) ambient.Sensor {
	switch cfg.Driver {
	case "static":
		return ambient.StaticSensor(cfg.Value)
	case "file":
		return ambient.FileSensor{Path: cfg.Path}
	default:
		return nil
	}
}

// statusPublisher forwards board statuses to the event bus.
type statusPublisher struct {
	bus *eventbus.Bus
}

func (p *statusPublisher) PublishStatus(status string) {
	p.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeStatus,
		Data: map[string]any{"status": status},
	})
}
