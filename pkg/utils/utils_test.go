package utils

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "1.2346", FormatFloat(1.23456, 4))
	assert.Equal(t, "NaN", FormatFloat(math.NaN(), 4))
	assert.Equal(t, "+Inf", FormatFloat(math.Inf(1), 2))
	assert.Equal(t, "-Inf", FormatSci(math.Inf(-1), 2))
	assert.Equal(t, "1.50e-04", FormatSci(1.5e-4, 2))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h 1m", FormatDuration(61*time.Minute))
}

// Property: removing the separators from FormatCount gives back the plain
// decimal form, and every group after the first has three digits.
func TestProperty_FormatCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("FormatCount preserves digits and groups by three", prop.ForAll(
		func(n int64) bool {
			formatted := FormatCount(n)
			if strings.ReplaceAll(formatted, ",", "") != strconv.FormatInt(n, 10) {
				return false
			}
			groups := strings.Split(strings.TrimPrefix(formatted, "-"), ",")
			if len(groups[0]) < 1 || len(groups[0]) > 3 {
				return false
			}
			for _, g := range groups[1:] {
				if len(g) != 3 {
					return false
				}
			}
			return true
		},
		gen.Int64Range(-1e15, 1e15),
	))

	properties.TestingRun(t)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdefgh", 5))
	assert.Equal(t, "ab", TruncateString("abcdefgh", 2))
}

var errBusy = errors.New("busy")

func fastRetry(retryable ...error) RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   2,
		RetryableErrors: retryable,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		if calls < 3 {
			return errBusy
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(), func() error {
		calls++
		return errBusy
	})
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	other := errors.New("constraint violated")
	calls := 0
	err := Retry(context.Background(), fastRetry(errBusy), func() error {
		calls++
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := fastRetry()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	err := Retry(ctx, cfg, func() error { return errBusy })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, CalculateBackoff(5, 100*time.Millisecond, time.Second, 2))
}
