// Package engine runs the board's control loop. The loop goroutine is the
// only one that touches the board; other goroutines reach it through Do.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/dashd/internal/ambient"
	"github.com/dokzlo13/dashd/internal/board"
	"github.com/dokzlo13/dashd/internal/protocol"
	"github.com/dokzlo13/dashd/internal/render"
)

// ErrLoopClosed is returned when work is submitted to a stopped loop.
var ErrLoopClosed = errors.New("control loop closed")

// ErrAbandoned is returned when Do stops waiting for work that was already
// queued. The work may still run. It wraps the cause, so errors.Is also
// matches context.Canceled, context.DeadlineExceeded or ErrLoopClosed.
var ErrAbandoned = errors.New("stopped waiting for queued work")

// errorLogInterval limits how often a repeating render or sensor failure is logged.
const errorLogInterval = 5 * time.Second

// Work is executed on the loop goroutine with exclusive access to the board.
type Work func()

// Settings hold the tick periods of the loop.
type Settings struct {
	FramePeriod    time.Duration
	CooldownPeriod time.Duration
	SensorPeriod   time.Duration
	SelfTestStep   time.Duration
}

// Loop services commands, cooldown, sensor and animation ticks in order, and
// flushes one frame to the renderer per iteration.
type Loop struct {
	board    *board.Board
	parser   *protocol.Parser
	filter   *ambient.Filter
	sensor   ambient.Sensor
	renderer render.Renderer
	settings Settings

	frame      []board.HSV
	brightness uint8

	lastCooldown time.Time
	lastSensor   time.Time
	lastFrame    time.Time

	renderErrors rate.Sometimes
	sensorErrors rate.Sometimes

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	workQueue chan Work
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a loop. sensor may be nil, in which case brightness stays at
// the filter's initial value.
func New(
	b *board.Board,
	parser *protocol.Parser,
	filter *ambient.Filter,
	sensor ambient.Sensor,
	renderer render.Renderer,
	settings Settings,
) *Loop {
	if renderer == nil {
		renderer = render.Null{}
	}
	return &Loop{
		board:        b,
		parser:       parser,
		filter:       filter,
		sensor:       sensor,
		renderer:     renderer,
		settings:     settings,
		frame:        make([]board.HSV, b.FrameSize()),
		brightness:   filter.Brightness(),
		renderErrors: rate.Sometimes{Interval: errorLogInterval},
		sensorErrors: rate.Sometimes{Interval: errorLogInterval},
		now:          time.Now,
		sleep:        sleepContext,
		workQueue:    make(chan Work, 100),
		closing:      make(chan struct{}),
	}
}

// Close stops the loop and makes pending and future Do calls fail.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closing)
	})
}

// Brightness returns the global brightness last computed from the sensor.
// Call it from loop work.
func (l *Loop) Brightness() uint8 {
	return l.brightness
}

// Frame returns the last computed frame. Call it from loop work.
func (l *Loop) Frame() []board.HSV {
	return l.frame
}

// Do runs work on the loop goroutine and waits for it to finish.
//
// Work that has been queued is not withdrawn. If ctx ends or the loop is
// closed after that point, Do returns an error wrapping ErrAbandoned and
// the work may still run, either later in Run or while Run drains the queue.
// Any other error means the work never ran.
func (l *Loop) Do(ctx context.Context, work Work) error {
	done := make(chan struct{})
	wrapped := Work(func() {
		defer close(done)
		work()
	})

	select {
	case <-l.closing:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	case l.workQueue <- wrapped:
	}

	select {
	case <-l.closing:
		return fmt.Errorf("%w: %w", ErrAbandoned, ErrLoopClosed)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())
	case <-done:
		return nil
	}
}

// Submit hands a command to the parser and reports whether it was accepted.
// On an ErrAbandoned error the command may still be applied; accepted is
// then unknown and reported as false.
func (l *Loop) Submit(ctx context.Context, text string) (bool, error) {
	var accepted bool
	err := l.Do(ctx, func() {
		accepted = l.parser.HandleCommand(text)
	})
	return accepted, err
}

// Status returns the board's current status string.
func (l *Loop) Status(ctx context.Context) (string, error) {
	var status string
	err := l.Do(ctx, func() {
		status = protocol.FormatStatus(l.board)
	})
	return status, err
}

// Run executes the loop until ctx is cancelled or Close is called. Queued
// work is finished before Run returns.
func (l *Loop) Run(ctx context.Context) {
	defer l.Close()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.drainQueue()
			return
		case <-l.closing:
			l.drainQueue()
			return
		case work := <-l.workQueue:
			l.executeWork(work)
			l.drainQueue()
		case <-timer.C:
		}

		now := l.now()
		l.Step(now)
		timer.Reset(l.nextDue(now))
	}
}

// Step runs every tick that is due at now and then flushes the frame.
func (l *Loop) Step(now time.Time) {
	if l.due(now, l.lastCooldown, l.settings.CooldownPeriod) {
		l.lastCooldown = now
		l.board.DecayHeat()
	}

	if l.sensor != nil && l.due(now, l.lastSensor, l.settings.SensorPeriod) {
		l.lastSensor = now
		l.sampleSensor()
	}

	if l.due(now, l.lastFrame, l.settings.FramePeriod) {
		l.lastFrame = now
		l.board.AdvanceFade(l.frame)
	}

	l.flush()
}

// SelfTest walks a single white pixel across the channels and then clears
// the board. It must run before Run.
func (l *Loop) SelfTest(ctx context.Context) error {
	n := l.board.Len()
	log.Info().Int("channels", n).Msg("Running startup self-test")

	for i := -1; i <= n; i++ {
		for j := range l.frame {
			l.frame[j] = board.Black
		}
		if i >= 0 && i < n {
			l.frame[i] = board.White
		}
		if err := l.renderer.Render(l.frame, l.filter.Brightness()); err != nil {
			l.renderErrors.Do(func() {
				log.Warn().Err(err).Msg("Self-test render failed")
			})
		}
		if err := l.sleep(ctx, l.settings.SelfTestStep); err != nil {
			return err
		}
	}

	l.board.Reset()
	for j := range l.frame {
		l.frame[j] = board.Black
	}
	return nil
}

func (l *Loop) due(now, last time.Time, period time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= period
}

// nextDue returns how long to wait until the earliest tick is due.
func (l *Loop) nextDue(now time.Time) time.Duration {
	wait := l.until(now, l.lastFrame, l.settings.FramePeriod)
	if d := l.until(now, l.lastCooldown, l.settings.CooldownPeriod); d < wait {
		wait = d
	}
	if l.sensor != nil {
		if d := l.until(now, l.lastSensor, l.settings.SensorPeriod); d < wait {
			wait = d
		}
	}
	return wait
}

func (l *Loop) until(now, last time.Time, period time.Duration) time.Duration {
	d := last.Add(period).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (l *Loop) sampleSensor() {
	raw, err := l.sensor.Read()
	if err != nil {
		l.sensorErrors.Do(func() {
			log.Warn().Err(err).Msg("Failed to read ambient light sensor")
		})
		return
	}
	l.brightness = l.filter.Add(raw)
}

func (l *Loop) flush() {
	if err := l.renderer.Render(l.frame, l.brightness); err != nil {
		l.renderErrors.Do(func() {
			log.Warn().Err(err).Msg("Failed to render frame")
		})
	}
}

// drainQueue processes any work already queued
func (l *Loop) drainQueue() {
	for {
		select {
		case work := <-l.workQueue:
			l.executeWork(work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (l *Loop) executeWork(work Work) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Loop work panicked - loop continuing")
		}
	}()
	work()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
