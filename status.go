package notifykit

import (
	"sync"
	"time"

	"github.com/agathaorg/notifykit/pkg/pushreg"
)

// State is the externally visible channel state.
type State string

const (
	StateInit                  State = "init"
	StateDisabled              State = "disabled"
	StateWaitingToken          State = "waiting_token"
	StateConnecting            State = "connecting"
	StateConnected             State = "connected"
	StateDisconnected          State = "disconnected"
	StateConnectError          State = "connect_error"
	StateNoPermission          State = "no_permission"
	StateNotificationsDisabled State = "notifications_disabled"
	StateNotifyError           State = "notify_error"
	StateStopped               State = "stopped"
)

var stateText = map[State]string{
	StateConnected:             "通知:已连接",
	StateConnecting:            "通知:连接中",
	StateDisconnected:          "通知:已断开",
	StateConnectError:          "通知:连接失败",
	StateNoPermission:          "通知:无权限",
	StateDisabled:              "通知:未配置",
	StateWaitingToken:          "通知:未登录",
	StateNotificationsDisabled: "通知:已关闭",
}

// Status is a snapshot of the listener.
type Status struct {
	State       State
	LastError   string
	LastEventAt time.Time
	// Attempts is the number of reconnects scheduled since the last success.
	Attempts int
	// Registration is the outcome of the last push registration attempt.
	Registration pushreg.Outcome
}

// Text returns the label shown to users.
func (s Status) Text() string {
	if t, ok := stateText[s.State]; ok {
		return t
	}
	if s.State == "" {
		return "通知:unknown"
	}
	return "通知:" + string(s.State)
}

type statusTracker struct {
	now func() time.Time

	mu sync.RWMutex
	s  Status
}

func newStatusTracker(now func() time.Time) *statusTracker {
	return &statusTracker{now: now, s: Status{State: StateInit}}
}

func (t *statusTracker) set(state State, lastErr string) {
	t.mu.Lock()
	t.s.State = state
	t.s.LastError = lastErr
	t.s.LastEventAt = t.now()
	t.mu.Unlock()
}

func (t *statusTracker) setAttempts(n int) {
	t.mu.Lock()
	t.s.Attempts = n
	t.mu.Unlock()
}

func (t *statusTracker) setRegistration(o pushreg.Outcome) {
	t.mu.Lock()
	t.s.Registration = o
	t.mu.Unlock()
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.s
}
