package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/logger"
	"github.com/agathaorg/notifykit/pkg/notifications"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Toast(ctx context.Context, a notifications.Alert) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockBackend) Notify(ctx context.Context, a notifications.Alert) error {
	return m.Called(ctx, a).Error(0)
}

var hiPayload = json.RawMessage(`{"chatId":7,"message":{"content":"hi"}}`)

func newDispatcher(b notifications.Backend, opts ...notifications.Option) *notifications.Dispatcher {
	opts = append([]notifications.Option{notifications.WithLogger(logger.Discard())}, opts...)
	return notifications.NewDispatcher(b, opts...)
}

func TestDispatcherForeground(t *testing.T) {
	t.Parallel()

	b := new(mockBackend)
	b.On("Toast", mock.Anything, mock.MatchedBy(func(a notifications.Alert) bool {
		return a.Title == "会话 7" && a.Body == "hi" && a.Foreground
	})).Return(nil).Once()

	d := newDispatcher(b)
	assert.True(t, d.Foreground())

	a, err := d.Handle(context.Background(), hiPayload)
	require.NoError(t, err)
	assert.Equal(t, "7", a.ChatID)
	assert.NotEqual(t, [16]byte{}, [16]byte(a.ID))

	b.AssertExpectations(t)
	b.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestDispatcherForegroundWithSystem(t *testing.T) {
	t.Parallel()

	b := new(mockBackend)
	b.On("Toast", mock.Anything, mock.Anything).Return(nil).Once()
	b.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	d := newDispatcher(b, notifications.WithSystemInForeground(true))
	_, err := d.Handle(context.Background(), hiPayload)
	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestDispatcherBackground(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := new(mockBackend)
	b.On("Notify", mock.Anything, mock.MatchedBy(func(a notifications.Alert) bool {
		return !a.Foreground && a.CreatedAt.Equal(now)
	})).Return(nil).Once()

	d := newDispatcher(b, notifications.WithForeground(false), notifications.WithClock(func() time.Time { return now }))
	_, err := d.Handle(context.Background(), hiPayload)
	require.NoError(t, err)

	b.AssertExpectations(t)
	b.AssertNotCalled(t, "Toast", mock.Anything, mock.Anything)
}

func TestDispatcherSwitchesOnLifecycle(t *testing.T) {
	t.Parallel()

	b := new(mockBackend)
	b.On("Toast", mock.Anything, mock.Anything).Return(nil).Once()
	b.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	d := newDispatcher(b)
	_, err := d.Handle(context.Background(), hiPayload)
	require.NoError(t, err)

	d.SetForeground(false)
	_, err = d.Handle(context.Background(), hiPayload)
	require.NoError(t, err)

	b.AssertExpectations(t)
}

func TestDispatcherErrors(t *testing.T) {
	t.Parallel()

	t.Run("malformed payload never reaches the backend", func(t *testing.T) {
		t.Parallel()

		b := new(mockBackend)
		d := newDispatcher(b)
		_, err := d.Handle(context.Background(), json.RawMessage(`{"chatId":7}`))
		assert.ErrorIs(t, err, notifications.ErrMalformedPayload)
		b.AssertNotCalled(t, "Toast", mock.Anything, mock.Anything)
		b.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("denied background notification is reported once", func(t *testing.T) {
		t.Parallel()

		b := new(mockBackend)
		b.On("Notify", mock.Anything, mock.Anything).Return(notifications.ErrPermissionDenied).Once()

		d := newDispatcher(b, notifications.WithForeground(false))
		_, err := d.Handle(context.Background(), hiPayload)
		assert.ErrorIs(t, err, notifications.ErrPermissionDenied)
		b.AssertNumberOfCalls(t, "Notify", 1)
	})

	t.Run("unsupported toast is not an error", func(t *testing.T) {
		t.Parallel()

		b := new(mockBackend)
		b.On("Toast", mock.Anything, mock.Anything).Return(notifications.ErrUnsupported).Once()

		d := newDispatcher(b)
		_, err := d.Handle(context.Background(), hiPayload)
		assert.NoError(t, err)
	})

	t.Run("toast failure", func(t *testing.T) {
		t.Parallel()

		b := new(mockBackend)
		b.On("Toast", mock.Anything, mock.Anything).Return(errors.New("ui busy")).Once()

		d := newDispatcher(b)
		_, err := d.Handle(context.Background(), hiPayload)
		assert.Error(t, err)
	})

	t.Run("nil backend", func(t *testing.T) {
		t.Parallel()

		d := newDispatcher(nil, notifications.WithForeground(false))
		_, err := d.Handle(context.Background(), hiPayload)
		assert.NoError(t, err)
	})
}
