package pushreg_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/pushreg"
)

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	body := []byte(`{"cid":"abc","platform":"android","appId":"minechat"}`)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		sig, err := pushreg.Sign("secret", body, time.Now())
		require.NoError(t, err)
		assert.Len(t, sig.Value, 64)
		assert.NotEmpty(t, sig.ID)

		h := http.Header{}
		sig.Apply(h)
		assert.NoError(t, pushreg.Verify("secret", body, h, time.Minute))
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()
		sig, err := pushreg.Sign("secret", body, time.Now())
		require.NoError(t, err)
		h := http.Header{}
		sig.Apply(h)
		err = pushreg.Verify("secret", []byte(`{"cid":"evil"}`), h, 0)
		assert.ErrorIs(t, err, pushreg.ErrInvalidSignature)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		sig, err := pushreg.Sign("secret", body, time.Now())
		require.NoError(t, err)
		h := http.Header{}
		sig.Apply(h)
		assert.ErrorIs(t, pushreg.Verify("other", body, h, 0), pushreg.ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		t.Parallel()
		sig, err := pushreg.Sign("secret", body, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		h := http.Header{}
		sig.Apply(h)
		assert.ErrorIs(t, pushreg.Verify("secret", body, h, 5*time.Minute), pushreg.ErrInvalidSignature)
		assert.NoError(t, pushreg.Verify("secret", body, h, 0))
	})

	t.Run("empty secret", func(t *testing.T) {
		t.Parallel()
		_, err := pushreg.Sign("", body, time.Now())
		assert.ErrorIs(t, err, pushreg.ErrInvalidSignature)
	})
}
