package notifications

import "errors"

var (
	ErrMalformedPayload      = errors.New("notifications: malformed payload")
	ErrPermissionDenied      = errors.New("notifications: permission denied")
	ErrNotificationsDisabled = errors.New("notifications: notifications disabled")
	ErrUnsupported           = errors.New("notifications: not supported on this platform")
	ErrRenderFailed          = errors.New("notifications: failed to show notification")
	ErrNilBackend            = errors.New("notifications: backend is nil")
)
