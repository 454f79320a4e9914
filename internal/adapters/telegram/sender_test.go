package telegram

import (
	"net/http"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traderwatch/pkg/errors"
)

func TestClassifySendError_RetryAfterBecomesRateLimit(t *testing.T) {
	err := classifySendError(&tgbotapi.Error{
		Code:               http.StatusTooManyRequests,
		Message:            "Too Many Requests: retry after 7",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7},
	})

	var rl *errors.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
}

func TestClassifySendError_429WithoutRetryAfter(t *testing.T) {
	err := classifySendError(&tgbotapi.Error{
		Code:    http.StatusTooManyRequests,
		Message: "Too Many Requests",
	})

	// Still retryable; the queue substitutes its default pause.
	var rl *errors.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, time.Duration(0), rl.RetryAfter)
}

func TestClassifySendError_OtherAPIErrorsAreTerminal(t *testing.T) {
	apiErr := &tgbotapi.Error{
		Code:    http.StatusBadRequest,
		Message: "Bad Request: chat not found",
	}

	err := classifySendError(apiErr)
	assert.Same(t, apiErr, err)
	assert.False(t, errors.Is(err, errors.ErrRateLimited))
}

func TestClassifySendError_PlainErrorPassesThrough(t *testing.T) {
	plain := errors.New("connection reset")

	err := classifySendError(plain)
	assert.Equal(t, plain, err)
	assert.False(t, errors.Is(err, errors.ErrRateLimited))
}
