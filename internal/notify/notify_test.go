package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/config"
	"pricewatch/internal/models"
)

// fakeChannel records sent notifications.
type fakeChannel struct {
	mu       sync.Mutex
	name     string
	enabled  bool
	received []Notification
}

func (c *fakeChannel) Name() string    { return c.name }
func (c *fakeChannel) IsEnabled() bool { return c.enabled }

func (c *fakeChannel) Send(ctx context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, n)
	return nil
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func TestMultiNotifier_LevelFilter(t *testing.T) {
	tests := []struct {
		level     NotificationLevel
		notifType NotificationType
		wantSent  bool
	}{
		{LevelAll, NotificationFiring, true},
		{LevelAll, NotificationError, true},
		{LevelAll, NotificationInfo, true},
		{LevelFiringsOnly, NotificationFiring, true},
		{LevelFiringsOnly, NotificationError, false},
		{LevelErrorsOnly, NotificationError, true},
		{LevelErrorsOnly, NotificationFiring, false},
	}

	for _, tt := range tests {
		ch := &fakeChannel{name: "fake", enabled: true}
		mn := &MultiNotifier{level: tt.level}
		mn.AddChannel(ch)

		err := mn.Send(context.Background(), Notification{Type: tt.notifType, Title: "t", Message: "m"})
		require.NoError(t, err)

		if tt.wantSent {
			assert.Equal(t, 1, ch.count(), "level=%s type=%s", tt.level, tt.notifType)
		} else {
			assert.Zero(t, ch.count(), "level=%s type=%s", tt.level, tt.notifType)
		}
	}
}

func TestMultiNotifier_SkipsDisabledChannels(t *testing.T) {
	enabled := &fakeChannel{name: "on", enabled: true}
	disabled := &fakeChannel{name: "off", enabled: false}

	mn := &MultiNotifier{level: LevelAll}
	mn.AddChannel(enabled)
	mn.AddChannel(disabled)

	firing := models.Firing{
		Symbol:     "AAPL",
		Price:      231,
		Target:     230,
		Direction:  models.DirectionAbove,
		ObservedAt: time.Now(),
	}
	require.NoError(t, mn.SendFiring(context.Background(), firing))

	assert.Equal(t, 1, enabled.count())
	assert.Zero(t, disabled.count())
}

func TestFiringNotification_Message(t *testing.T) {
	firing := models.Firing{
		RuleID:     "rule-1",
		Symbol:     "AAPL",
		Price:      231.5,
		Target:     230,
		Direction:  models.DirectionAbove,
		ObservedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	n := FiringNotification(firing)

	assert.Equal(t, NotificationFiring, n.Type)
	assert.Equal(t, "AAPL price alert", n.Title)
	assert.Contains(t, n.Message, "$231.50")
	assert.Contains(t, n.Message, "ABOVE")
	assert.Contains(t, n.Message, "$230.00")
	assert.Equal(t, firing.ObservedAt, n.Timestamp)
	assert.Equal(t, "rule-1", n.Data["rule_id"])
}

func TestFiringNotification_BelowDirection(t *testing.T) {
	firing := models.Firing{
		Symbol:    "BTC",
		Price:     44000,
		Target:    45000,
		Direction: models.DirectionBelow,
	}

	n := FiringNotification(firing)
	assert.Contains(t, n.Message, "BELOW")
}

func TestWebhookChannel_Send(t *testing.T) {
	var gotBody string
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: server.URL})
	require.True(t, ch.IsEnabled())

	n := Notification{
		Type:      NotificationFiring,
		Title:     "AAPL price alert",
		Message:   "AAPL is $231.00",
		Timestamp: time.Now(),
	}
	require.NoError(t, ch.Send(context.Background(), n))

	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, gotBody, "AAPL price alert")
	assert.Contains(t, gotBody, `"type":"firing"`)
}

func TestWebhookChannel_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch := NewWebhookChannel(config.WebhookConfig{Enabled: true, URL: server.URL})
	err := ch.Send(context.Background(), Notification{Title: "t", Message: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestTelegramChannel_DisabledWithoutCredentials(t *testing.T) {
	ch := NewTelegramChannel(config.TelegramConfig{Enabled: true})
	assert.False(t, ch.IsEnabled())

	ch = NewTelegramChannel(config.TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "123"})
	assert.True(t, ch.IsEnabled())
}

func TestEmailChannel_DisabledWithoutConfig(t *testing.T) {
	ch := NewEmailChannel(config.EmailConfig{Enabled: true})
	assert.False(t, ch.IsEnabled())

	ch = NewEmailChannel(config.EmailConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		From:     "a@example.com",
		To:       "b@example.com",
	})
	assert.True(t, ch.IsEnabled())
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", escapeHTML("a <b> & c"))
	assert.Equal(t, strings.Repeat("x", 3), escapeHTML("xxx"))
}

func TestNewMultiNotifier_BuildsEnabledChannels(t *testing.T) {
	cfg := &config.NotificationConfig{
		Enabled: true,
		Level:   "all",
		Telegram: config.TelegramConfig{
			Enabled:  true,
			BotToken: "tok",
			ChatID:   "123",
		},
		Webhook: config.WebhookConfig{
			Enabled: true,
			URL:     "https://example.com/hook",
		},
	}

	mn := NewMultiNotifier(cfg)
	assert.Len(t, mn.channels, 2)
	assert.Equal(t, LevelAll, mn.level)
}
