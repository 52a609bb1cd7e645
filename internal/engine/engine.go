package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/genricoloni/nowpaper/internal/domain"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// backoffFactor scales the poll interval after a failed tick when no explicit backoff is set
const backoffFactor = 5

// State is the lifecycle state of the poll loop
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Options configures the poll loop timing and redraw policy
type Options struct {
	Interval time.Duration
	// Backoff is the pause after a failed tick; zero means 5x Interval
	Backoff time.Duration
	Policy  Policy
}

// Engine polls the source on a timer and redraws the display when the
// snapshot changes enough to be worth a refresh.
// It owns the last rendered snapshot; only the loop goroutine touches it.
type Engine struct {
	logger   *zap.Logger
	source   domain.Source
	renderer domain.Renderer
	driver   domain.Driver
	interval time.Duration
	backoff  time.Duration
	policy   Policy

	last   *domain.TrackSnapshot
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new poll loop
func NewEngine(
	logger *zap.Logger,
	source domain.Source,
	renderer domain.Renderer,
	driver domain.Driver,
	opts Options,
) *Engine {
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = backoffFactor * opts.Interval
	}
	return &Engine{
		logger:   logger,
		source:   source,
		renderer: renderer,
		driver:   driver,
		interval: opts.Interval,
		backoff:  backoff,
		policy:   opts.Policy,
	}
}

// State reports whether the loop is running
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start initializes the display and launches the poll loop in a goroutine.
// It returns immediately (non-blocking). A driver that cannot initialize is
// a fatal startup error.
func (e *Engine) Start(ctx context.Context) error {
	e.logger.Info("Engine starting...",
		zap.Duration("interval", e.interval),
		zap.Duration("backoff", e.backoff),
		zap.Bool("refreshWhilePlaying", e.policy.RefreshWhilePlaying))

	if err := e.driver.Init(ctx); err != nil {
		e.logger.Error("Display failed to initialize", zap.Error(err))
		return fmt.Errorf("display init failed: %w", err)
	}

	// The start context only covers startup; the loop lives until Stop.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state.Store(int32(StateRunning))

	go e.runLoop(loopCtx)
	return nil
}

// runLoop ticks, then sleeps for the poll interval or the backoff after a
// failed tick. Cancellation is only observed between ticks.
func (e *Engine) runLoop(ctx context.Context) {
	defer close(e.done)

	tickCtx := context.WithoutCancel(ctx)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine loop stopped")
			return
		case <-timer.C:
			if ctx.Err() != nil {
				e.logger.Info("Engine loop stopped")
				return
			}
		}

		wait := e.interval
		if err := e.Tick(tickCtx); err != nil {
			e.logger.Error("Display update failed, backing off",
				zap.Error(err),
				zap.Duration("backoff", e.backoff))
			wait = e.backoff
		}
		timer.Reset(wait)
	}
}

// Tick runs one poll: fetch, decide, render and present.
// The remembered snapshot only advances when the frame was presented, so a
// failed present is retried on the next tick. Tick is not safe to call
// while the loop is running.
func (e *Engine) Tick(ctx context.Context) error {
	cur, err := e.source.Fetch(ctx)
	if err != nil {
		e.logger.Debug("Source unavailable, treating as no session", zap.Error(err))
		cur = nil
	}

	if !e.policy.ShouldUpdate(e.last, cur) {
		return nil
	}

	frame := e.renderer.Render(cur)
	if err := e.driver.Present(ctx, frame); err != nil {
		return fmt.Errorf("failed to present frame: %w", err)
	}

	if cur == nil {
		e.logger.Info("No playback detected, showing idle screen")
		e.last = nil
		return nil
	}

	e.logger.Debug("Display updated",
		zap.String("title", cur.Title),
		zap.String("artist", cur.Artist),
		zap.String("status", string(cur.Status)))
	snap := *cur
	e.last = &snap
	return nil
}

// Stop waits for the loop to finish its current tick, then puts the display
// to sleep and releases it. The cleanup runs even when ctx expires first.
func (e *Engine) Stop(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateStopped)) {
		return nil
	}
	e.logger.Info("Engine stopping...")

	e.cancel()
	var waitErr error
	select {
	case <-e.done:
	case <-ctx.Done():
		waitErr = fmt.Errorf("engine loop did not stop: %w", ctx.Err())
		e.logger.Warn("Engine loop still busy, cleaning up the display anyway", zap.Error(waitErr))
	}

	cleanupCtx := context.WithoutCancel(ctx)
	cleanupErr := multierr.Combine(e.driver.Sleep(cleanupCtx), e.driver.Close())
	if cleanupErr != nil {
		e.logger.Error("Display cleanup failed", zap.Error(cleanupErr))
	} else {
		e.logger.Info("Display cleaned up")
	}
	return multierr.Combine(waitErr, cleanupErr)
}
