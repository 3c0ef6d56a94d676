package helper

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithBackoffStopsOnSuccess(t *testing.T) {
	calls := 0
	result, err := RetryWithBackoff(context.Background(), func() (string, bool, error) {
		calls++
		if calls < 3 {
			return "", true, errors.New("transient")
		}
		return "done", false, nil
	}, 5, time.Millisecond)

	assert.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), func() (struct{}, bool, error) {
		calls++
		return struct{}{}, false, errors.New("permanent")
	}, 5, time.Millisecond)

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffExhaustsBudget(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), func() (struct{}, bool, error) {
		calls++
		return struct{}{}, true, errors.New("always failing")
	}, 2, time.Millisecond)

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithBackoff(ctx, func() (struct{}, bool, error) {
		calls++
		return struct{}{}, true, errors.New("transient")
	}, 5, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "a cancelled context stops further attempts during backoff")
}

func TestShouldRetryHTTP(t *testing.T) {
	assert.True(t, ShouldRetryHTTP(nil, errors.New("network")))
	assert.True(t, ShouldRetryHTTP(&http.Response{StatusCode: http.StatusInternalServerError}, nil))
	assert.True(t, ShouldRetryHTTP(&http.Response{StatusCode: http.StatusTooManyRequests}, nil))
	assert.False(t, ShouldRetryHTTP(&http.Response{StatusCode: http.StatusOK}, nil))
	assert.False(t, ShouldRetryHTTP(&http.Response{StatusCode: http.StatusBadRequest}, nil))
}
