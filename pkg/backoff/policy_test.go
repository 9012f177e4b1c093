package backoff_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agathaorg/notifykit/pkg/backoff"
)

func TestPolicy_NextDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   backoff.Policy
		attempts []int
		want     []time.Duration
	}{
		{
			name:     "connection policy",
			policy:   backoff.ConnectionPolicy(),
			attempts: []int{1, 2, 3, 4, 5, 6, 7},
			want: []time.Duration{
				3 * time.Second,
				4500 * time.Millisecond,
				6750 * time.Millisecond,
				10125 * time.Millisecond,
				15187500 * time.Microsecond,
				22781250 * time.Microsecond,
				30 * time.Second, // capped
			},
		},
		{
			name:     "attempts below one behave like the first",
			policy:   backoff.ConnectionPolicy(),
			attempts: []int{0, -3},
			want:     []time.Duration{3 * time.Second, 3 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, len(tt.attempts), len(tt.want), "test setup error")

			for i, attempt := range tt.attempts {
				assert.Equal(t, tt.want[i], tt.policy.NextDelay(attempt), "attempt %d", attempt)
			}
		})
	}
}

func TestPolicy_NextDelayMatchesFormula(t *testing.T) {
	t.Parallel()

	p := backoff.ConnectionPolicy()
	prev := time.Duration(0)
	for n := 1; n <= 50; n++ {
		want := math.Min(float64(p.Initial)*math.Pow(p.Factor, float64(n-1)), float64(p.Max))
		got := p.NextDelay(n)

		assert.Equal(t, time.Duration(want), got, "attempt %d", n)
		assert.GreaterOrEqual(t, got, prev, "delay must not decrease at attempt %d", n)
		assert.LessOrEqual(t, got, p.Max)
		prev = got
	}
}

func TestPolicy_Jitter(t *testing.T) {
	t.Parallel()

	p := backoff.Policy{
		Initial: time.Second,
		Max:     time.Minute,
		Factor:  2,
		Jitter:  0.5,
	}

	for range 100 {
		d := p.NextDelay(2)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}

	capped := backoff.Policy{Initial: time.Second, Max: time.Second, Factor: 2, Jitter: 1}
	for range 100 {
		assert.LessOrEqual(t, capped.NextDelay(5), time.Second)
	}
}

func TestPolicy_Grow(t *testing.T) {
	t.Parallel()

	p := backoff.RegistrationPolicy()

	t.Run("starts from floor", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 800*time.Millisecond, p.Reset())
		assert.Equal(t, 800*time.Millisecond, p.Grow(0))
	})

	t.Run("strictly increases then plateaus", func(t *testing.T) {
		t.Parallel()

		d := p.Reset()
		var seen []time.Duration
		for range 20 {
			next := p.Grow(d)
			if d < p.Max {
				assert.Greater(t, next, d)
			} else {
				assert.Equal(t, p.Max, next)
			}
			seen = append(seen, next)
			d = next
		}
		assert.Equal(t, 1280*time.Millisecond, seen[0])
		assert.Equal(t, 2048*time.Millisecond, seen[1])
		assert.Equal(t, p.Max, seen[len(seen)-1])
	})

	t.Run("values below the floor jump to it", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 800*time.Millisecond, p.Grow(10*time.Millisecond))
	})
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, backoff.ConnectionPolicy().Validate())
	assert.NoError(t, backoff.RegistrationPolicy().Validate())

	bad := []backoff.Policy{
		{},
		{Initial: time.Second, Max: time.Millisecond, Factor: 2},
		{Initial: time.Second, Max: time.Minute, Factor: 0.5},
		{Initial: time.Second, Max: time.Minute, Factor: 2, Jitter: 2},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.Validate(), backoff.ErrInvalidPolicy)
	}
}
