package activityscheduler

import (
	"context"
	"log/slog"
	"time"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
)

// DefaultInterval is the decay period.
const DefaultInterval = 5 * time.Minute

// DecayRunner runs one decay pass.
type DecayRunner interface {
	RunDecay(ctx context.Context) (activityservice.DecayReport, error)
}

// Scheduler drives decay passes until ctx is done.
type Scheduler interface {
	Run(ctx context.Context) error
}

// Ticker is the part of time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc builds a Ticker firing every d.
type NewTickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop() { r.t.Stop() }

// RealTicker wraps time.NewTicker.
func RealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// TickerScheduler runs a pass immediately and then once per tick. Passes
// never overlap. The ticker buffers one tick, so a pass that overruns the
// interval is followed at once by another pass and any further ticks are
// dropped.
type TickerScheduler struct {
	runner    DecayRunner
	interval  time.Duration
	newTicker NewTickerFunc
	logger    *slog.Logger
}

// NewTickerScheduler creates a TickerScheduler. A nil newTicker uses RealTicker.
func NewTickerScheduler(runner DecayRunner, interval time.Duration, newTicker NewTickerFunc, logger *slog.Logger) *TickerScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if newTicker == nil {
		newTicker = RealTicker
	}
	return &TickerScheduler{runner: runner, interval: interval, newTicker: newTicker, logger: logger}
}

// Run blocks until ctx is done.
func (s *TickerScheduler) Run(ctx context.Context) error {
	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "Decay scheduler started",
		attr.String("driver", "ticker"),
		attr.Duration("interval", s.interval),
	)

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Decay scheduler stopped")
			return nil
		case <-ticker.C():
			s.runOnce(ctx)
		}
	}
}

func (s *TickerScheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.RunDecay(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "Decay pass failed", attr.Error(err))
	}
}
