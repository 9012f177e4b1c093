package secrets_test

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/secrets"
)

func newSealer(t *testing.T, scope string) (*secrets.Sealer, []byte) {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	s, err := secrets.NewSealer(key, scope)
	require.NoError(t, err)
	return s, key
}

func TestSealOpen(t *testing.T) {
	t.Parallel()

	s, _ := newSealer(t, "notify")

	tests := []struct {
		name  string
		value string
	}{
		{"bearer token", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"},
		{"unicode", "令牌 🔑"},
		{"long", strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sealed, err := s.Seal(tt.value)
			require.NoError(t, err)
			assert.True(t, secrets.IsSealed(sealed))
			assert.NotContains(t, sealed, tt.value)

			again, err := s.Seal(tt.value)
			require.NoError(t, err)
			assert.NotEqual(t, sealed, again, "nonces must differ")

			plain, err := s.Open(sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.value, plain)
		})
	}
}

func TestSealEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newSealer(t, "notify")
	sealed, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := s.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestOpenFailures(t *testing.T) {
	t.Parallel()

	s, key := newSealer(t, "notify")
	sealed, err := s.Seal("tok")
	require.NoError(t, err)

	t.Run("plaintext", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open("tok")
		assert.ErrorIs(t, err, secrets.ErrNotSealed)
	})

	t.Run("other scope", func(t *testing.T) {
		t.Parallel()
		other, err := secrets.NewSealer(key, "elsewhere")
		require.NoError(t, err)
		_, err = other.Open(sealed)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("tampered", func(t *testing.T) {
		t.Parallel()
		b := []byte(sealed)
		mid := len(b) / 2
		if b[mid] == 'A' {
			b[mid] = 'B'
		} else {
			b[mid] = 'A'
		}
		_, err := s.Open(string(b))
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open("v1:AAAA")
		assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
	})

	t.Run("bad base64", func(t *testing.T) {
		t.Parallel()
		_, err := s.Open("v1:***")
		assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
	})
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	for name, enc := range map[string]string{
		"hex":        hex.EncodeToString(key),
		"std base64": base64.StdEncoding.EncodeToString(key),
		"url base64": base64.RawURLEncoding.EncodeToString(key),
	} {
		got, err := secrets.ParseKey("  " + enc + "\n")
		require.NoError(t, err, name)
		assert.Equal(t, key, got, name)
	}

	_, err = secrets.ParseKey("short")
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)
	_, err = secrets.NewSealer([]byte("short"), "x")
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)
}
