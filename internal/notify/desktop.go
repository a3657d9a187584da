package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"pricewatch/internal/config"
)

// DesktopChannel shows notifications on the local desktop. It shells out to
// the platform notifier and falls back to a terminal bell when no notifier
// binary is available.
type DesktopChannel struct {
	enabled bool
	bell    bool
}

// NewDesktopChannel creates a new DesktopChannel.
func NewDesktopChannel(cfg config.DesktopConfig) *DesktopChannel {
	return &DesktopChannel{
		enabled: cfg.Enabled,
		bell:    cfg.Bell,
	}
}

// Name returns the name of the channel.
func (d *DesktopChannel) Name() string {
	return "desktop"
}

// IsEnabled returns whether the channel is enabled.
func (d *DesktopChannel) IsEnabled() bool {
	return d.enabled
}

// Send shows a desktop notification.
func (d *DesktopChannel) Send(ctx context.Context, n Notification) error {
	if !d.enabled {
		return nil
	}

	if err := d.show(ctx, n.Title, n.Message); err != nil {
		if d.bell {
			d.ring()
			return nil
		}
		return err
	}

	if d.bell {
		d.ring()
	}
	return nil
}

// show invokes the platform notification command.
func (d *DesktopChannel) show(ctx context.Context, title, message string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	case "linux":
		if _, err := exec.LookPath("notify-send"); err != nil {
			return fmt.Errorf("notify-send not found: %w", err)
		}
		return exec.CommandContext(ctx, "notify-send", "-u", "normal", title, message).Run()
	default:
		return fmt.Errorf("desktop notifications not supported on %s", runtime.GOOS)
	}
}

// ring writes the terminal bell character.
func (d *DesktopChannel) ring() {
	fmt.Fprint(os.Stderr, "\a")
}
