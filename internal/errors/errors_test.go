package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeMissingQuery, CategoryValidation, SeverityError},
		{ErrCodeDocNotFound, CategoryNotFound, SeverityError},
		{ErrCodeUnauthorized, CategoryAuth, SeverityError},
		{ErrCodeAntiBot, CategoryUpstream, SeverityError},
		{ErrCodeMatchSyntax, CategoryParse, SeverityWarning},
		{ErrCodeBadBatch, CategoryIntegrity, SeverityError},
		{ErrCodeQualityGate, CategoryQuality, SeverityFatal},
		{ErrCodeStoreUnavailable, CategoryFatal, SeverityFatal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestRetryableCodes(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeUpstreamRateLimit, "429", nil)))
	assert.True(t, IsRetryable(New(ErrCodeAntiBot, "challenge", nil)))
	assert.False(t, IsRetryable(New(ErrCodeQualityGate, "drop", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeStoreUnavailable, cause)
	require.NotNil(t, err)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Message)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeStoreUnavailable, nil))
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("sync failed: %w", New(ErrCodeQualityGate, "count dropped", nil))
	assert.ErrorIs(t, wrapped, New(ErrCodeQualityGate, "", nil))
	assert.True(t, IsFatal(wrapped))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeAntiBot, "challenge page", nil).
		WithDetail("marker", "RGV587_ERROR").
		WithSuggestion("refresh the session token")

	assert.Equal(t, "RGV587_ERROR", err.Details["marker"])
	assert.Equal(t, "refresh the session token", err.Suggestion)
}
