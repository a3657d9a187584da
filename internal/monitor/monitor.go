package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/models"
	"pricewatch/internal/notify"
	"pricewatch/internal/store"
)

// DefaultInterval is the default time between checks.
const DefaultInterval = 60 * time.Second

// ErrTickInProgress is returned by Tick when a previous tick is still running.
var ErrTickInProgress = errors.New("previous check still in progress")

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval overrides the default check interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithHistory attaches a firing history store.
func WithHistory(history store.HistoryStore) MonitorOption {
	return func(m *Monitor) {
		m.history = history
	}
}

// WithMonitorLogger attaches a logger to the monitor.
func WithMonitorLogger(logger zerolog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// Monitor drives the evaluator on a fixed interval and dispatches firings.
type Monitor struct {
	scope     string
	rules     store.RuleStore
	history   store.HistoryStore
	evaluator *Evaluator
	notifier  notify.Notifier
	interval  time.Duration
	logger    zerolog.Logger

	// tickMu guards against overlapping ticks. A tick that outlives the
	// interval causes the next one to be skipped, not queued.
	tickMu sync.Mutex
}

// NewMonitor creates a monitor over the given evaluator and notifier.
func NewMonitor(scope string, rules store.RuleStore, evaluator *Evaluator, notifier notify.Notifier, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		scope:     scope,
		rules:     rules,
		evaluator: evaluator,
		notifier:  notifier,
		interval:  DefaultInterval,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interval returns the configured check interval.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Run checks all rules immediately and then on every interval until the
// context is cancelled. Per-tick failures are logged and retried on the next
// tick; Run only returns the context's error.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info().
		Str("scope", m.scope).
		Dur("interval", m.interval).
		Msg("Starting price monitor")

	if _, err := m.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn().Err(err).Msg("Check failed")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Stopping price monitor")
			return ctx.Err()
		case <-ticker.C:
			_, err := m.Tick(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrTickInProgress):
				m.logger.Warn().Msg("Skipping check, previous one still running")
			case errors.Is(err, context.Canceled):
			default:
				m.logger.Warn().Err(err).Msg("Check failed")
			}
		}
	}
}

// Tick performs a single check pass: load rules, evaluate, dispatch firings,
// record history. The dispatched firings are returned. Returns
// ErrTickInProgress if a previous pass has not finished yet.
func (m *Monitor) Tick(ctx context.Context) ([]models.Firing, error) {
	if !m.tickMu.TryLock() {
		return nil, ErrTickInProgress
	}
	defer m.tickMu.Unlock()

	now := time.Now()

	rules, err := m.rules.List(ctx, m.scope)
	if err != nil {
		// Nothing to evaluate this tick; the store may recover by the next one.
		return nil, err
	}

	firings, evalErr := m.evaluator.CheckAll(ctx, m.scope, rules, now)

	for _, firing := range firings {
		m.logger.Info().
			Str("rule_id", firing.RuleID).
			Str("symbol", firing.Symbol).
			Float64("price", firing.Price).
			Float64("target", firing.Target).
			Str("direction", string(firing.Direction)).
			Msg("Alert fired")

		if err := m.notifier.SendFiring(ctx, firing); err != nil {
			m.logger.Warn().
				Err(err).
				Str("rule_id", firing.RuleID).
				Msg("Failed to send notification")
		}

		if m.history != nil {
			if err := m.history.RecordFiring(ctx, m.scope, firing); err != nil {
				m.logger.Warn().
					Err(err).
					Str("rule_id", firing.RuleID).
					Msg("Failed to record firing in history")
			}
		}
	}

	m.logger.Debug().
		Int("rules", len(rules)).
		Int("firings", len(firings)).
		Dur("duration", time.Since(now)).
		Msg("Check complete")

	return firings, evalErr
}
