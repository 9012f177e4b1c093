package pushreg

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	SignatureHeader   = "X-Notify-Signature"
	TimestampHeader   = "X-Notify-Timestamp"
	SignatureIDHeader = "X-Notify-ID"
)

// Signature carries the request signing headers.
type Signature struct {
	Value     string
	Timestamp int64
	ID        string
}

// Apply sets the signature headers on h.
func (s Signature) Apply(h http.Header) {
	h.Set(SignatureHeader, s.Value)
	h.Set(TimestampHeader, strconv.FormatInt(s.Timestamp, 10))
	h.Set(SignatureIDHeader, s.ID)
}

// Sign computes HMAC-SHA256(secret, "{timestamp}.{body}").
func Sign(secret string, body []byte, now time.Time) (Signature, error) {
	if secret == "" {
		return Signature{}, fmt.Errorf("%w: secret is required", ErrInvalidSignature)
	}
	ts := now.Unix()
	return Signature{
		Value:     computeSignature(secret, ts, body),
		Timestamp: ts,
		ID:        uuid.NewString(),
	}, nil
}

// Verify checks a signature taken from request headers. A positive maxAge
// also rejects stale and far-future timestamps.
func Verify(secret string, body []byte, h http.Header, maxAge time.Duration) error {
	sig := h.Get(SignatureHeader)
	if secret == "" || sig == "" {
		return fmt.Errorf("%w: secret and signature are required", ErrInvalidSignature)
	}
	ts, err := strconv.ParseInt(h.Get(TimestampHeader), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid timestamp", ErrInvalidSignature)
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > maxAge {
			return fmt.Errorf("%w: timestamp too old: %v", ErrInvalidSignature, age)
		}
		if age < -time.Minute {
			return fmt.Errorf("%w: timestamp is in the future", ErrInvalidSignature)
		}
	}

	expected := computeSignature(secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

func computeSignature(secret string, ts int64, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", ts)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
