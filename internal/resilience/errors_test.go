package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "unexpected status 404 from https://x/a", (&StatusError{StatusCode: 404, URL: "https://x/a"}).Error())
	assert.Equal(t, "unexpected status 500", (&StatusError{StatusCode: 500}).Error())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"regular", errors.New("invalid input"), false},
		{"status 503", &StatusError{StatusCode: 503}, true},
		{"status 429 wrapped by eris", eris.Wrap(&StatusError{StatusCode: 429}, "web: fetch"), true},
		{"status 404", &StatusError{StatusCode: 404}, false},
		{"status 404 wrapped", fmt.Errorf("fetch: %w", &StatusError{StatusCode: 404}), false},
		{"conn reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"string pattern", errors.New("read: connection reset by peer"), true},
		{"no such host", &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassCanceled, Classify(fmt.Errorf("x: %w", context.Canceled)))
	assert.Equal(t, ClassTransient, Classify(&StatusError{StatusCode: 502}))
	assert.Equal(t, ClassPermanent, Classify(&StatusError{StatusCode: 403}))
	assert.Equal(t, ClassPermanent, Classify(errors.New("boom")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 425, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
