package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	s := &ExponentialBackoff{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, time.Second, s.NextRetry(0))
	assert.Equal(t, 2*time.Second, s.NextRetry(1))
	assert.Equal(t, 4*time.Second, s.NextRetry(2))
	// Capped at MaxDelay
	assert.Equal(t, 10*time.Second, s.NextRetry(5))
}

func TestRetry(t *testing.T) {
	s := &ExponentialBackoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}

	// Succeeds on the second attempt
	attempts := 0
	err := retry(3, s, func() error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)

	// Exhausts attempts and returns the last error
	attempts = 0
	err = retry(3, s, func() error {
		attempts++
		return errors.New("permanent")
	})
	require.EqualError(t, err, "permanent")
	require.Equal(t, 3, attempts)
}
