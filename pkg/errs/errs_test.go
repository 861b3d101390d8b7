package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(KindUnknownStyle, "frame.AddFrame", "no frame style %q", "baroque")

	assert.True(t, errors.Is(err, ErrUnknownStyle))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, `frame.AddFrame: no frame style "baroque"`, err.Error())
}

func TestRefinedKindsAreInvalidInput(t *testing.T) {
	for _, kind := range []Kind{KindInvalidAspectRatio, KindWrongImageCount} {
		err := New(kind, "op", "bad")
		assert.True(t, errors.Is(err, ErrInvalidInput), "kind %s", kind)
	}
	assert.False(t, errors.Is(ErrInvalidInput, ErrWrongImageCount))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(KindMattingFailure, "swap.Swap", cause, "matting subject").WithKey("s0")

	assert.True(t, errors.Is(err, ErrMattingFailure))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "swap.Swap: matting subject [s0]: connection refused", err.Error())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", InvalidInput("cropper.Crop", "empty image"))

	assert.Equal(t, KindInvalidInput, KindOf(wrapped))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
