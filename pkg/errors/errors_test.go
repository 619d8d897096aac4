package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsByKind(t *testing.T) {
	err := RateLimitedErr("github: %d remaining", 0)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrUnauthoriz))
}

func TestUnwrapComposesWithStandardErrors(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NetworkErr(cause, "fetching raw content")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Network, Of(err))
}

func TestOfUnknownForPlainError(t *testing.T) {
	assert.Equal(t, Unknown, Of(fmt.Errorf("plain")))
}

func TestOfFindsWrappedKind(t *testing.T) {
	inner := ConfigErr("missing output.directory")
	outer := fmt.Errorf("startup failed: %w", inner)
	assert.Equal(t, Config, Of(outer))
}
