package credentials_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/credentials"
	"github.com/agathaorg/notifykit/pkg/secrets"
)

func newSealer(t *testing.T) *secrets.Sealer {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	s, err := secrets.NewSealer(key, "test")
	require.NoError(t, err)
	return s
}

func TestSealedStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("token is sealed at rest", func(t *testing.T) {
		t.Parallel()
		inner := credentials.NewMemoryStore("")
		store, err := credentials.NewSealedStore(inner, newSealer(t))
		require.NoError(t, err)

		require.NoError(t, store.SetToken(ctx, " secret-token "))
		raw, err := inner.Token(ctx)
		require.NoError(t, err)
		assert.True(t, secrets.IsSealed(raw))
		assert.NotContains(t, raw, "secret-token")

		tok, err := store.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "secret-token", tok)
	})

	t.Run("legacy plaintext is read", func(t *testing.T) {
		t.Parallel()
		store, err := credentials.NewSealedStore(credentials.NewMemoryStore("old-token"), newSealer(t))
		require.NoError(t, err)

		tok, err := store.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "old-token", tok)
	})

	t.Run("foreign ciphertext is corrupt", func(t *testing.T) {
		t.Parallel()
		inner := credentials.NewMemoryStore("")
		writer, err := credentials.NewSealedStore(inner, newSealer(t))
		require.NoError(t, err)
		require.NoError(t, writer.SetToken(ctx, "tok"))

		reader, err := credentials.NewSealedStore(inner, newSealer(t))
		require.NoError(t, err)
		_, err = reader.Token(ctx)
		assert.ErrorIs(t, err, credentials.ErrCorruptStore)
	})

	t.Run("empty token clears", func(t *testing.T) {
		t.Parallel()
		inner := credentials.NewMemoryStore("x")
		store, err := credentials.NewSealedStore(inner, newSealer(t))
		require.NoError(t, err)
		require.NoError(t, store.SetToken(ctx, ""))

		tok, err := store.Token(ctx)
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("records pass through", func(t *testing.T) {
		t.Parallel()
		inner := credentials.NewMemoryStore("")
		store, err := credentials.NewSealedStore(inner, newSealer(t))
		require.NoError(t, err)

		rec := credentials.PushRecord{ClientID: "cid", APIBase: "https://x/api"}
		require.NoError(t, store.SaveRecord(ctx, rec))
		got, err := inner.LoadRecord(ctx)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("nil dependencies", func(t *testing.T) {
		t.Parallel()
		_, err := credentials.NewSealedStore(nil, newSealer(t))
		assert.ErrorIs(t, err, credentials.ErrNilStorage)
	})
}
