package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorf(t *testing.T) {
	orig := errors.New("connection refused")
	err := WrapErrorf(orig, ErrUnavailable, "routing request to %s failed", "localhost")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, orig)
	assert.Equal(t, ErrUnavailable, ErrorCode(err))
	assert.Equal(t, "routing request to localhost failed: connection refused", err.Error())

	assert.Equal(t, ErrInternalServerError, ErrorCode(errors.New("plain")))
}

func TestRoundTo(t *testing.T) {
	testCases := []struct {
		name string
		val  float64
		step float64
		want float64
	}{
		{name: "round down", val: 349, step: 100, want: 300},
		{name: "round up", val: 351, step: 100, want: 400},
		{name: "exact", val: 20, step: 5, want: 20},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RoundTo(tt.val, tt.step), 1e-9)
		})
	}
}
