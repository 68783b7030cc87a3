package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresAuth(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"not found", NotFoundOrPrivate(fmt.Errorf("404")), true},
		{"access denied", AccessDenied(), true},
		{"rate limited", RateLimited(fmt.Errorf("403")), true},
		{"invalid identifier", InvalidIdentifier("nope"), false},
		{"unavailable", UpstreamUnavailable(fmt.Errorf("502"), "bad gateway"), false},
		{"timeout", Timeout(fmt.Errorf("deadline")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.RequiresAuth())
			assert.Equal(t, tt.want, RequiresAuth(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("fetch metadata: %w", RateLimited(fmt.Errorf("403 API rate limit exceeded")))

	assert.True(t, errors.Is(err, New(KindRateLimited, "")))
	assert.False(t, errors.Is(err, New(KindNotFoundOrPrivate, "")))
	assert.Equal(t, KindRateLimited, GetKind(err))
	assert.True(t, IsKind(err, KindRateLimited))
}

func TestGetKindPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, GetKind(fmt.Errorf("boom")))
	assert.False(t, RequiresAuth(fmt.Errorf("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindInternal, "nothing"))
}

func TestErrorMessagePreservesCause(t *testing.T) {
	err := UpstreamUnavailable(fmt.Errorf("connection reset by peer"), "list languages")
	assert.Equal(t, "list languages: connection reset by peer", err.Error())
	assert.Contains(t, err.DetailedString(), "UPSTREAM_UNAVAILABLE")
	assert.Contains(t, err.DetailedString(), "connection reset by peer")
}

func TestInvalidIdentifierContext(t *testing.T) {
	err := InvalidIdentifier("just-a-name")
	assert.Equal(t, "just-a-name", err.Context["input"])
	assert.Contains(t, err.DetailedString(), "input: just-a-name")
}
