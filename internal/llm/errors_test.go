package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_KindIsDistinguishableViaErrorsAs(t *testing.T) {
	wrapped := error(&Error{Kind: KindRateLimited, Provider: "anthropic", Message: "status 429", Retryable: true})

	var ge *Error
	require.True(t, errors.As(wrapped, &ge))
	assert.Equal(t, KindRateLimited, ge.Kind)
}

func TestError_MessageIncludesKind(t *testing.T) {
	err := &Error{Kind: KindAuth, Provider: "openai", Message: "status 401"}
	assert.Contains(t, err.Error(), "AUTH")
	assert.Contains(t, err.Error(), "openai")
}
