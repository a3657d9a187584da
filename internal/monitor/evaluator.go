// Package monitor evaluates alert rules against current prices and drives
// the periodic check loop.
package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pricewatch/internal/models"
	"pricewatch/internal/quotes"
	"pricewatch/internal/store"
)

// DefaultCooldownWindow is the minimum time between two firings of one rule.
const DefaultCooldownWindow = time.Hour

// DefaultQuoteTimeout bounds a single symbol fetch so one unresponsive
// upstream symbol cannot stall the whole tick.
const DefaultQuoteTimeout = 5 * time.Second

// maxParallelFetches caps concurrent quote requests per tick.
const maxParallelFetches = 4

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithCooldownWindow overrides the default cooldown window.
func WithCooldownWindow(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		if d > 0 {
			e.cooldown = d
		}
	}
}

// WithQuoteTimeout overrides the per-symbol fetch timeout.
func WithQuoteTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) {
		if d > 0 {
			e.quoteTimeout = d
		}
	}
}

// WithLogger attaches a logger to the evaluator.
func WithLogger(logger zerolog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// Evaluator turns (rules, price lookup, clock) into (firings, rule updates).
// It reads rules supplied by the caller and writes back last-fired timestamps
// through the store's partial update; it holds no rule state across ticks.
type Evaluator struct {
	rules        store.RuleStore
	provider     quotes.Provider
	cooldown     time.Duration
	quoteTimeout time.Duration
	logger       zerolog.Logger
}

// NewEvaluator creates an evaluator over the given rule store and provider.
func NewEvaluator(rules store.RuleStore, provider quotes.Provider, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		rules:        rules,
		provider:     provider,
		cooldown:     DefaultCooldownWindow,
		quoteTimeout: DefaultQuoteTimeout,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CooldownWindow returns the configured cooldown window.
func (e *Evaluator) CooldownWindow() time.Duration {
	return e.cooldown
}

// CheckAll evaluates every enabled rule against current prices.
//
// Each unique symbol is fetched exactly once per call; a quote failure for
// one symbol silently skips its rules for this tick without aborting the
// batch. A crossed rule inside its cooldown window is suppressed. A crossed
// rule outside it produces a Firing and its last-fired timestamp is persisted
// through the store.
//
// The returned error is non-nil only for store-level failures recording
// last-fired timestamps; the firings computed before and after such a failure
// are still returned so the caller can dispatch them. An unrecorded timestamp
// means the same rule may fire again next tick, which is preferred over
// silently losing the notification.
func (e *Evaluator) CheckAll(ctx context.Context, scope string, rules []models.AlertRule, now time.Time) ([]models.Firing, error) {
	prices := e.fetchPrices(ctx, rules)

	var firings []models.Firing
	var updateErrs []error

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		price, ok := prices[rule.Symbol]
		if !ok {
			continue
		}

		if !rule.Crossed(price) {
			continue
		}

		// Cooldown is keyed by rule identity: editing the target does not
		// reset an active suppression window.
		if rule.LastFiredAt != nil && now.Sub(*rule.LastFiredAt) < e.cooldown {
			e.logger.Debug().
				Str("rule_id", rule.ID).
				Str("symbol", rule.Symbol).
				Time("last_fired_at", *rule.LastFiredAt).
				Msg("Firing suppressed by cooldown")
			continue
		}

		firing := models.Firing{
			RuleID:     rule.ID,
			Symbol:     rule.Symbol,
			Price:      price,
			Target:     rule.Target,
			Direction:  rule.Direction,
			ObservedAt: now,
		}
		firings = append(firings, firing)

		fired := now
		patch := store.RulePatch{LastFiredAt: &fired}
		if err := e.rules.UpdateFields(ctx, scope, rule.ID, patch); err != nil {
			// The firing still goes out; the unset cooldown guard means a
			// possible duplicate next tick rather than a lost alert.
			e.logger.Warn().
				Err(err).
				Str("rule_id", rule.ID).
				Msg("Failed to record last-fired timestamp")
			updateErrs = append(updateErrs, err)
		}
	}

	return firings, errors.Join(updateErrs...)
}

// fetchPrices resolves the unique symbol set of the enabled rules, fetching
// each symbol at most once. Fetches run concurrently with a bounded per-call
// timeout; the result map is keyed by symbol so rule matching is
// deterministic regardless of completion order.
func (e *Evaluator) fetchPrices(ctx context.Context, rules []models.AlertRule) map[string]float64 {
	seen := make(map[string]struct{})
	var symbols []string
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if _, ok := seen[rule.Symbol]; ok {
			continue
		}
		seen[rule.Symbol] = struct{}{}
		symbols = append(symbols, rule.Symbol)
	}
	sort.Strings(symbols)

	prices := make(map[string]float64, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, e.quoteTimeout)
			defer cancel()

			start := time.Now()
			price, err := e.provider.Quote(fetchCtx, symbol)
			if err != nil {
				// No data this tick; the rules on this symbol are skipped
				// without failing the batch.
				e.logger.Debug().
					Err(err).
					Str("symbol", symbol).
					Dur("duration", time.Since(start)).
					Msg("Quote unavailable, skipping symbol")
				return nil
			}

			mu.Lock()
			prices[symbol] = price
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; Wait only collects completion.
	g.Wait()

	return prices
}
