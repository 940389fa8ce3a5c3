// Package resilience classifies send failures and provides retry with
// backoff for the outreach scheduler. Duplicate detection deliberately has
// no retry path; failures there degrade to empty results.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (429, 5xx, network
// timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status
// code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientPatterns are string heuristics for wrapped network errors coming
// out of HTTP and SMTP clients.
var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"too many requests",
	"rate limit",
	"421 ", // SMTP service not available, closing transmission channel
	"451 ", // SMTP local error in processing
	"452 ", // SMTP insufficient system storage
}

// IsTransient reports whether the error (or any error in its chain) is a
// TransientError, a network timeout, a connection-level failure, or matches
// a known transient SMTP/HTTP pattern.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// Error types recorded on dead letters.
const (
	ErrorTypeTransient = "transient"
	ErrorTypePermanent = "permanent"
)

// ClassifySendError categorizes a send failure as transient or permanent.
// Transient dead letters are candidates for a later retry sweep; permanent
// ones (bad address, auth rejection) need human attention.
func ClassifySendError(err error) string {
	if IsTransient(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
