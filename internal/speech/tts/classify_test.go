package tts

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      ErrorKind
		retryable bool
	}{
		{"quota exceeded", 401, `{"detail":{"status":"quota_exceeded","message":"out of characters"}}`, KindQuotaExceeded, false},
		{"bad key", 401, `{"detail":{"status":"invalid_api_key","message":"nope"}}`, KindAuthentication, false},
		{"401 without body", 401, ``, KindAuthentication, false},
		{"401 with string detail", 401, `{"detail":"Unauthorized"}`, KindAuthentication, false},
		{"validation", 422, `{"detail":[{"loc":["body","text"],"msg":"field required"}]}`, KindValidation, false},
		{"rate limited", 429, `{"detail":{"status":"too_many_concurrent_requests"}}`, KindRateLimited, true},
		{"no response", NoStatus, ``, KindNetwork, true},
		{"internal error", 500, `oops`, KindServerFault, true},
		{"bad gateway", 502, ``, KindServerFault, true},
		{"unavailable", 503, `{"detail":{"status":"quota_exceeded"}}`, KindServerFault, true},
		{"bad request", 400, `{"detail":{"status":"voice_not_found"}}`, KindUnknown, false},
		{"not found", 404, ``, KindUnknown, false},
		{"redirect", 302, ``, KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, []byte(tt.body))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.retryable, got.Retryable())
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "quota_exceeded", KindQuotaExceeded.String())
	assert.Equal(t, "server_fault", KindServerFault.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}

func TestServiceError_MatchesKindSentinel(t *testing.T) {
	err := NewServiceError(http.StatusUnauthorized, []byte(`{"detail":{"status":"quota_exceeded","message":"limit reached"}}`), nil)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.NotErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, "quota_exceeded", err.Code)
	assert.Equal(t, "limit reached", err.Message)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.False(t, err.Retryable())

	wrapped := fmt.Errorf("chunk 3: %w", err)
	var svcErr *ServiceError
	require.True(t, errors.As(wrapped, &svcErr))
	assert.Equal(t, KindQuotaExceeded, svcErr.Kind)
}

func TestServiceError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewServiceError(NoStatus, nil, cause)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable())
	assert.NotContains(t, err.Error(), "HTTP")
}

func TestAsServiceError(t *testing.T) {
	assert.Nil(t, AsServiceError(nil))

	plain := AsServiceError(errors.New("dial tcp: timeout"))
	assert.Equal(t, KindNetwork, plain.Kind)

	original := NewServiceError(422, nil, nil)
	assert.Same(t, original, AsServiceError(fmt.Errorf("wrapped: %w", original)))
}
