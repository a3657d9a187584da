package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/models"
	"pricewatch/internal/notify"
)

// recordingNotifier captures dispatched firings.
type recordingNotifier struct {
	mu      sync.Mutex
	firings []models.Firing
}

func (n *recordingNotifier) Send(ctx context.Context, notif notify.Notification) error {
	return nil
}

func (n *recordingNotifier) SendFiring(ctx context.Context, firing models.Firing) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.firings = append(n.firings, firing)
	return nil
}

func (n *recordingNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return nil
}

func (n *recordingNotifier) sent() []models.Firing {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Firing(nil), n.firings...)
}

// recordingHistory captures recorded firings.
type recordingHistory struct {
	mu      sync.Mutex
	firings []models.Firing
}

func (h *recordingHistory) RecordFiring(ctx context.Context, scope string, firing models.Firing) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.firings = append(h.firings, firing)
	return nil
}

func (h *recordingHistory) ListFirings(ctx context.Context, scope string, limit int) ([]models.Firing, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.Firing(nil), h.firings...), nil
}

func TestTick_DispatchesAndRecordsFirings(t *testing.T) {
	rule := mustRule(t, "AAPL", 230, models.DirectionAbove)
	rules := newFakeRuleStore(rule)
	provider := newFakeProvider(map[string]float64{"AAPL": 231.0})
	notifier := &recordingNotifier{}
	history := &recordingHistory{}

	m := NewMonitor("default", rules, NewEvaluator(rules, provider), notifier,
		WithHistory(history),
	)

	firings, err := m.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, firings, 1)

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, rule.ID, sent[0].RuleID)

	recorded, err := history.ListFirings(context.Background(), "default", 10)
	require.NoError(t, err)
	assert.Len(t, recorded, 1)
}

func TestTick_NoFiringsNoDispatch(t *testing.T) {
	rule := mustRule(t, "AAPL", 230, models.DirectionAbove)
	rules := newFakeRuleStore(rule)
	provider := newFakeProvider(map[string]float64{"AAPL": 100.0})
	notifier := &recordingNotifier{}

	m := NewMonitor("default", rules, NewEvaluator(rules, provider), notifier)

	firings, err := m.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, firings)
	assert.Empty(t, notifier.sent())
}

func TestTick_RejectsOverlap(t *testing.T) {
	rules := newFakeRuleStore()
	provider := newFakeProvider(nil)
	notifier := &recordingNotifier{}

	m := NewMonitor("default", rules, NewEvaluator(rules, provider), notifier)

	m.tickMu.Lock()
	_, err := m.Tick(context.Background())
	m.tickMu.Unlock()

	assert.ErrorIs(t, err, ErrTickInProgress)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	rules := newFakeRuleStore()
	provider := newFakeProvider(nil)
	notifier := &recordingNotifier{}

	m := NewMonitor("default", rules, NewEvaluator(rules, provider), notifier,
		WithInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}

func TestWithInterval(t *testing.T) {
	rules := newFakeRuleStore()
	provider := newFakeProvider(nil)
	notifier := &recordingNotifier{}

	m := NewMonitor("default", rules, NewEvaluator(rules, provider), notifier,
		WithInterval(5*time.Second),
	)
	assert.Equal(t, 5*time.Second, m.Interval())

	m = NewMonitor("default", rules, NewEvaluator(rules, provider), notifier,
		WithInterval(0),
	)
	assert.Equal(t, DefaultInterval, m.Interval())
}
