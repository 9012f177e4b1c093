package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agathaorg/notifykit/pkg/logger"
)

// Backend renders alerts on one platform.
type Backend interface {
	// Toast shows a lightweight in-app alert.
	Toast(ctx context.Context, a Alert) error
	// Notify posts a system-level notification.
	Notify(ctx context.Context, a Alert) error
}

// Native rendering constants.
const (
	ChannelID          = "minechat_notify"
	ChannelName        = "Minechat 消息通知"
	NotificationIcon   = "stat_notify_chat"
	notificationIDBase = 20300
	ToastDuration      = 3 * time.Second
)

// Channel is a system notification channel.
type Channel struct {
	ID          string
	Name        string
	Description string
}

// SystemNotification is what NativeBackend hands to the host.
type SystemNotification struct {
	ID         int
	ChannelID  string
	Title      string
	Content    string
	Icon       string
	AutoCancel bool
	When       time.Time
}

// SystemNotifier is the host's native notification API.
type SystemNotifier interface {
	// Permitted reports whether the app may post notifications.
	Permitted(ctx context.Context) bool
	// Enabled reports whether the user has notifications switched on.
	Enabled(ctx context.Context) bool
	EnsureChannel(ctx context.Context, ch Channel) error
	Notify(ctx context.Context, n SystemNotification) error
}

// Toaster shows in-app toasts.
type Toaster interface {
	Toast(ctx context.Context, title string, d time.Duration) error
	Vibrate(ctx context.Context) error
}

// NativeOption configures a NativeBackend.
type NativeOption func(*NativeBackend)

// WithToaster enables in-app toasts.
func WithToaster(t Toaster) NativeOption {
	return func(b *NativeBackend) { b.toaster = t }
}

// WithNativeClock sets the clock used for notification ids.
func WithNativeClock(now func() time.Time) NativeOption {
	return func(b *NativeBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NativeBackend renders through a host SystemNotifier.
type NativeBackend struct {
	notifier SystemNotifier
	toaster  Toaster
	now      func() time.Time
}

// NewNativeBackend creates a backend for notifier.
func NewNativeBackend(notifier SystemNotifier, opts ...NativeOption) *NativeBackend {
	b := &NativeBackend{notifier: notifier, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Toast shows the alert title through the host toaster and vibrates.
// Without a toaster it returns ErrUnsupported.
func (b *NativeBackend) Toast(ctx context.Context, a Alert) error {
	if b.toaster == nil {
		return ErrUnsupported
	}
	title := a.Title
	if title == "" {
		title = DefaultTitle
	}
	if err := b.toaster.Toast(ctx, title, ToastDuration); err != nil {
		return fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	// Vibration is best effort.
	_ = b.toaster.Vibrate(ctx)
	return nil
}

// Notify posts a system notification on the minechat channel after
// checking permission and the app-level notification switch.
func (b *NativeBackend) Notify(ctx context.Context, a Alert) error {
	if b.notifier == nil {
		return ErrUnsupported
	}
	if !b.notifier.Permitted(ctx) {
		return ErrPermissionDenied
	}
	if !b.notifier.Enabled(ctx) {
		return ErrNotificationsDisabled
	}
	if err := b.notifier.EnsureChannel(ctx, Channel{ID: ChannelID, Name: ChannelName, Description: ChannelName}); err != nil {
		return fmt.Errorf("%w: channel: %w", ErrRenderFailed, err)
	}

	now := b.now()
	n := SystemNotification{
		ID:         notificationIDBase + int(now.UnixMilli()%1000),
		ChannelID:  ChannelID,
		Title:      a.Title,
		Content:    a.Body,
		Icon:       NotificationIcon,
		AutoCancel: true,
		When:       now,
	}
	if err := b.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return nil
}

// Permission is a browser notification permission.
type Permission string

const (
	PermissionDefault     Permission = "default"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// WebNotifier is the browser Notification API.
type WebNotifier interface {
	Permission(ctx context.Context) Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, title, body string) error
}

// WebBackend renders through a WebNotifier.
type WebBackend struct {
	notifier WebNotifier
	toaster  Toaster
}

// NewWebBackend creates a backend for notifier. toaster may be nil.
func NewWebBackend(notifier WebNotifier, toaster Toaster) *WebBackend {
	return &WebBackend{notifier: notifier, toaster: toaster}
}

// Toast shows the alert title when a toaster is available.
func (b *WebBackend) Toast(ctx context.Context, a Alert) error {
	if b.toaster == nil {
		return ErrUnsupported
	}
	if err := b.toaster.Toast(ctx, a.Title, ToastDuration); err != nil {
		return fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return nil
}

// Notify shows a browser notification, asking for permission first when
// the user has not decided yet.
func (b *WebBackend) Notify(ctx context.Context, a Alert) error {
	if b.notifier == nil {
		return ErrUnsupported
	}

	perm := b.notifier.Permission(ctx)
	if perm == PermissionDefault {
		var err error
		perm, err = b.notifier.RequestPermission(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}

	switch perm {
	case PermissionGranted:
	case PermissionUnsupported:
		return ErrUnsupported
	default:
		return ErrPermissionDenied
	}

	if err := b.notifier.Show(ctx, a.Title, a.Body); err != nil {
		return fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	return nil
}

// ConsoleBackend writes alerts to a logger.
type ConsoleBackend struct {
	logger *slog.Logger
}

// NewConsoleBackend creates a backend logging to l.
func NewConsoleBackend(l *slog.Logger) *ConsoleBackend {
	if l == nil {
		l = slog.Default()
	}
	return &ConsoleBackend{logger: l}
}

// Toast logs the alert with channel=toast.
func (b *ConsoleBackend) Toast(ctx context.Context, a Alert) error {
	b.log(ctx, "toast", a)
	return nil
}

// Notify logs the alert with channel=system.
func (b *ConsoleBackend) Notify(ctx context.Context, a Alert) error {
	b.log(ctx, "system", a)
	return nil
}

func (b *ConsoleBackend) log(ctx context.Context, channel string, a Alert) {
	b.logger.LogAttrs(ctx, slog.LevelInfo, "notification",
		slog.String("channel", channel),
		slog.String("id", a.ID.String()),
		slog.String("title", a.Title),
		slog.String("body", a.Body),
		logger.ChatID(a.ChatID),
	)
}

// NoOpBackend discards alerts.
type NoOpBackend struct{}

// Toast does nothing.
func (NoOpBackend) Toast(context.Context, Alert) error { return nil }

// Notify does nothing.
func (NoOpBackend) Notify(context.Context, Alert) error { return nil }
