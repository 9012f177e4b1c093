package credentials

import (
	"context"
	"strings"
	"time"
)

// Store is the credential slot.
type Store interface {
	// Token returns the current credential, or "" when unauthenticated.
	Token(ctx context.Context) (string, error)
	// SetToken replaces the credential. An empty token clears it.
	SetToken(ctx context.Context, token string) error
}

// RecordStore persists the push registration record.
type RecordStore interface {
	// LoadRecord returns the stored record, or the zero record if none exists.
	LoadRecord(ctx context.Context) (PushRecord, error)
	SaveRecord(ctx context.Context, rec PushRecord) error
	ClearRecord(ctx context.Context) error
}

// Storage is a credential slot with its sibling record storage.
type Storage interface {
	Store
	RecordStore
}

// PushRecord describes the last successful push registration.
type PushRecord struct {
	ClientID     string    `json:"clientId"`
	RegisteredAt time.Time `json:"registeredAt"`
	APIBase      string    `json:"apiBase"`
}

// IsZero reports whether no registration has been recorded.
func (r PushRecord) IsZero() bool {
	return r.ClientID == "" && r.RegisteredAt.IsZero() && r.APIBase == ""
}

// Trusted reports whether the record proves clientID is already registered with apiBase.
func (r PushRecord) Trusted(clientID, apiBase string) bool {
	return clientID != "" &&
		r.ClientID == clientID &&
		!r.RegisteredAt.IsZero() &&
		r.APIBase == apiBase
}

func normalizeToken(token string) string {
	return strings.TrimSpace(token)
}
