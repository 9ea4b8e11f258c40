package frequency

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"syscall"
)

var (
	// ErrNotFound is a definitive "no frequency for this variant" answer.
	ErrNotFound = errors.New("allele frequency not found")

	// ErrMalformedResponse marks a response body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed frequency response")

	// ErrInvalidFrequency marks a decoded frequency outside [0, 1].
	ErrInvalidFrequency = errors.New("allele frequency out of range")
)

// Source answers single-variant frequency queries.
type Source interface {
	// Query returns the allele frequency of k, ErrNotFound for a definitive
	// miss, or another error for a failed lookup.
	Query(ctx context.Context, k Key) (float64, error)
}

// BatchSource answers many keys with one request. The returned map holds
// Found results and Failed results for keys whose answer was unusable; keys
// missing from it are definitive misses.
type BatchSource interface {
	Source
	QueryBatch(ctx context.Context, keys []Key) (map[Key]Result, error)
}

// StatusError is an unexpected HTTP status from the frequency service.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Transient reports whether the status is worth retrying (5xx and 429).
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// IsTransient reports whether a lookup error may succeed on retry: network
// timeouts, resets and refusals, 5xx/429 statuses, truncated or undecodable
// bodies. Cancellation, definitive misses and other 4xx statuses are final.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidFrequency) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}

	if errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// CheckFrequency validates that af is a proportion.
func CheckFrequency(af float64) error {
	if math.IsNaN(af) || af < 0 || af > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidFrequency, af)
	}
	return nil
}
