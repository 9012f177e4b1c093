package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a rendered notification ready for a backend.
type Alert struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ChatID     string    `json:"chat_id,omitempty"`
	Foreground bool      `json:"foreground"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewAlert builds an alert from p.
func NewAlert(p Payload, foreground bool, now time.Time) Alert {
	return Alert{
		ID:         uuid.New(),
		Title:      p.Title(),
		Body:       p.Body(),
		ChatID:     string(p.ChatID),
		Foreground: foreground,
		CreatedAt:  now,
	}
}
