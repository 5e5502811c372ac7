package turnkit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  *TransportError
		want string
	}{
		{"status and body", &TransportError{StatusCode: 429, Body: "rate limited"}, "backend: status 429: rate limited"},
		{"status only", &TransportError{StatusCode: 503}, "backend: status 503"},
		{"cause only", &TransportError{Cause: errors.New("connection refused")}, "backend: connection refused"},
		{"empty", &TransportError{}, "backend: transport failure"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := fmt.Errorf("stream read: %w", &TransportError{Cause: cause})

	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, cause)
}

func TestIsPermissionDenied(t *testing.T) {
	assert.True(t, IsPermissionDenied(ErrPermissionDenied))
	assert.True(t, IsPermissionDenied(fmt.Errorf("cannot write %s: %w", "/etc", ErrPermissionDenied)))
	assert.False(t, IsPermissionDenied(errors.New("permission denied")))
	assert.False(t, IsPermissionDenied(nil))
}

func TestUsageAdd(t *testing.T) {
	var total Usage
	total.Add(Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	total.Add(Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3})

	assert.Equal(t, 11, total.InputTokens)
	assert.Equal(t, 7, total.OutputTokens)
	assert.Equal(t, 18, total.TotalTokens)
}
