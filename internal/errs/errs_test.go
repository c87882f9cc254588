package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapFormatsKindAndMessage(t *testing.T) {
	err := Wrap(KindStorage, "write %s: %w", "anomaly", errors.New("disk full"))
	assert.EqualError(t, err, "storage: write anomaly: disk full")
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := Wrap(KindDetector, "detector exploded")
	assert.True(t, Is(err, KindDetector))
	assert.False(t, Is(err, KindStorage))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindConfig))
}

func TestNewReturnsNilForNilError(t *testing.T) {
	assert.NoError(t, New(KindState, nil))
}

func TestUnwrapExposesUnderlyingError(t *testing.T) {
	inner := errors.New("root cause")
	err := New(KindTransport, inner)
	assert.True(t, errors.Is(err, inner))
}

func TestErrorSatisfiesStandardWrapping(t *testing.T) {
	inner := errors.New("boom")
	wrapped := fmt.Errorf("outer: %w", New(KindValidation, inner))
	assert.True(t, Is(wrapped, KindValidation))
}
