package credentials

import (
	"context"
	"errors"

	"github.com/agathaorg/notifykit/pkg/secrets"
)

// SealedStore encrypts the credential before it reaches the inner storage.
// Plaintext credentials written before sealing was enabled are still read.
type SealedStore struct {
	Storage
	sealer *secrets.Sealer
}

// NewSealedStore wraps inner so tokens are stored sealed.
func NewSealedStore(inner Storage, sealer *secrets.Sealer) (*SealedStore, error) {
	if inner == nil || sealer == nil {
		return nil, ErrNilStorage
	}
	return &SealedStore{Storage: inner, sealer: sealer}, nil
}

// Token opens the stored credential. A value stored before sealing was
// enabled is returned as is.
func (s *SealedStore) Token(ctx context.Context) (string, error) {
	raw, err := s.Storage.Token(ctx)
	if err != nil || raw == "" {
		return raw, err
	}
	token, err := s.sealer.Open(raw)
	if errors.Is(err, secrets.ErrNotSealed) {
		return raw, nil
	}
	if err != nil {
		return "", errors.Join(ErrCorruptStore, err)
	}
	return normalizeToken(token), nil
}

// SetToken seals token before writing it. An empty token stays empty.
func (s *SealedStore) SetToken(ctx context.Context, token string) error {
	sealed, err := s.sealer.Seal(normalizeToken(token))
	if err != nil {
		return err
	}
	return s.Storage.SetToken(ctx, sealed)
}
