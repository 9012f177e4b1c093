package backoff

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes an exponential backoff curve with a cap.
type Policy struct {
	// Initial is the delay of the first retry.
	Initial time.Duration
	// Max caps every computed delay.
	Max time.Duration
	// Floor is the smallest delay Grow will return. Zero means Initial.
	Floor time.Duration
	// Factor is the growth multiplier between attempts.
	Factor float64
	// Jitter spreads delays by ±Jitter (0.0 to 1.0). Zero keeps delays deterministic.
	Jitter float64
}

// ConnectionPolicy is the reconnect curve of the transport connection:
// 3s growing by 1.5x up to 30s.
func ConnectionPolicy() Policy {
	return Policy{
		Initial: 3 * time.Second,
		Max:     30 * time.Second,
		Factor:  1.5,
	}
}

// RegistrationPolicy is the slower curve of the push registration loop:
// floor 800ms growing by 1.6x up to 60s.
func RegistrationPolicy() Policy {
	return Policy{
		Initial: 800 * time.Millisecond,
		Floor:   800 * time.Millisecond,
		Max:     60 * time.Second,
		Factor:  1.6,
	}
}

// Validate reports whether the policy can be used.
func (p Policy) Validate() error {
	switch {
	case p.Initial <= 0:
		return fmt.Errorf("%w: initial delay must be positive", ErrInvalidPolicy)
	case p.Max < p.Initial:
		return fmt.Errorf("%w: max delay %v is below initial delay %v", ErrInvalidPolicy, p.Max, p.Initial)
	case p.Factor < 1:
		return fmt.Errorf("%w: factor must be >= 1", ErrInvalidPolicy)
	case p.Jitter < 0 || p.Jitter > 1:
		return fmt.Errorf("%w: jitter must be within [0, 1]", ErrInvalidPolicy)
	}
	return nil
}

// NextDelay returns min(Initial * Factor^(attempt-1), Max).
// Attempts below 1 are treated as the first attempt.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.Initial) * math.Pow(p.Factor, float64(attempt-1))
	return p.clamp(p.jitter(d))
}

// Grow returns the delay that follows current: current * Factor, no smaller
// than the floor and no larger than Max. A non-positive current yields the floor.
func (p Policy) Grow(current time.Duration) time.Duration {
	if current <= 0 {
		return p.Reset()
	}
	d := float64(current) * p.Factor
	if floor := float64(p.floor()); d < floor {
		d = floor
	}
	return p.clamp(d)
}

// Reset returns the delay a loop starts from after a success.
func (p Policy) Reset() time.Duration {
	return p.clamp(float64(p.floor()))
}

func (p Policy) floor() time.Duration {
	if p.Floor > 0 {
		return p.Floor
	}
	return p.Initial
}

func (p Policy) jitter(d float64) float64 {
	if p.Jitter <= 0 {
		return d
	}
	return d * (1 + (rand.Float64()*2-1)*p.Jitter) // #nosec G404 -- jitter does not need crypto randomness
}

func (p Policy) clamp(d float64) time.Duration {
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
