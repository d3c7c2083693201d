package retry

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

type Strategy interface {
	// Sleep returns the delay before attempt retryCount+1, or true when no
	// attempt is left.
	Sleep(retryCount uint) (time.Duration, bool)
}

type never struct{}

func NewNever() *never {
	return &never{}
}

func (nr *never) Sleep(uint) (time.Duration, bool) {
	return 0, true
}

type constant struct {
	delay         time.Duration
	maxRetryCount uint
}

func NewConstant(delay time.Duration, maxRetryCount uint) *constant {
	return &constant{
		delay:         delay,
		maxRetryCount: maxRetryCount,
	}
}

func (c *constant) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= c.maxRetryCount {
		return 0, true
	}
	return c.delay, false
}

// Entropy picks a delay in [0, n); full jitter by default.
type Entropy func(int64) int64

type exponentialBackOff struct {
	base          time.Duration
	max           time.Duration
	maxRetryCount uint
	entropy       Entropy
}

func NewExponentialBackOff(base time.Duration, max time.Duration, maxRetryCount uint, entropy Entropy) *exponentialBackOff {
	return &exponentialBackOff{
		base:          base,
		max:           max,
		maxRetryCount: maxRetryCount,
		entropy:       entropy,
	}
}

func (eb *exponentialBackOff) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= eb.maxRetryCount {
		return 0, true
	}

	ceiling := int64(eb.max)
	if retryCount < 63 {
		if delay, err := checkedMulInt64(1<<retryCount, int64(eb.base)); err == nil {
			ceiling = atMost(delay, ceiling)
		}
	}
	if ceiling <= 0 {
		return 0, false
	}
	return time.Duration(eb.getEntropy()(ceiling)), false
}

func (eb *exponentialBackOff) getEntropy() Entropy {
	if eb.entropy == nil {
		return rand.Int63n
	}
	return eb.entropy
}

func atMost[T constraints.Ordered](v T, limit T) T {
	if v > limit {
		return limit
	}
	return v
}

var ErrOverflow = errors.New("overflow")

func checkedMulInt64(l int64, r int64) (int64, error) {
	if l == 0 || r == 0 {
		return 0, nil
	}
	if l > math.MaxInt64/r {
		return 0, ErrOverflow
	}
	return l * r, nil
}
