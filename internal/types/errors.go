package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrConfiguration means process-wide configuration (master key, signing
	// secret, API keys) is missing or malformed. Nothing that needs the broken
	// value may proceed.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrValidation is a caller fault (missing/empty required field). Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrDecryption means a stored envelope could not be opened (tampered,
	// truncated, or sealed under a different master key). Reported per record,
	// never treated as absence.
	ErrDecryption = errors.New("decryption failed")

	// ErrUpstream covers third-party API failures (weather provider, Slack).
	ErrUpstream = errors.New("upstream failure")

	// ErrTimeout is a bounded external call running out of time. It wraps
	// ErrUpstream so callers handling upstream failures catch timeouts too.
	ErrTimeout = fmt.Errorf("timeout: %w", ErrUpstream)
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}

// UpstreamError carries the detail of a rejected third-party call. Status/Body
// are set for HTTP-level failures; PlatformCode is set when the platform
// answered 200 but rejected the call in its payload (Slack style).
type UpstreamError struct {
	API          string
	Status       int
	Body         string
	PlatformCode string
}

func (e *UpstreamError) Error() string {
	if e.PlatformCode != "" {
		return fmt.Sprintf("%s rejected the call: %s", e.API, e.PlatformCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.API, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }
