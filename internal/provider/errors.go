package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// The shared error taxonomy. Adapters translate every provider-native failure
// into one of these before it crosses the package boundary.
var (
	// ErrInvalidOrExpiredRequest means the OAuth handshake state was lost or
	// expired; the authorization flow must be restarted from scratch.
	ErrInvalidOrExpiredRequest = errors.New("authorization request is invalid or has expired")

	// ErrUnauthorized means the provider rejected the stored credential. The
	// credential must be discarded and never silently retried.
	ErrUnauthorized = errors.New("provider rejected the credential")

	// ErrNotFound means the repository no longer exists or access was revoked.
	ErrNotFound = errors.New("repository not found")

	// ErrNetwork is a transient connectivity or timeout failure. Not retried
	// automatically; the user retries by reloading.
	ErrNetwork = errors.New("could not connect to provider")

	// ErrIncompatible means the remote repository's type cannot be imported.
	ErrIncompatible = errors.New("repository type cannot be imported")
)

// translateStatus maps an HTTP response code from a provider API onto the
// taxonomy. A zero status means no response was received at all.
func translateStatus(kind Kind, status int, err error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", kind, ErrUnauthorized)
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", kind, ErrNotFound)
	case status >= 500:
		return fmt.Errorf("%s responded %d: %w", kind, status, ErrNetwork)
	case err != nil:
		return translateTransport(kind, err)
	case status >= 400:
		return fmt.Errorf("%s responded %d: %w", kind, status, ErrNetwork)
	}
	return nil
}

// translateTransport classifies errors raised before any HTTP status existed:
// DNS failures, refused connections, timeouts, cancelled contexts.
func translateTransport(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNetwork), errors.Is(err, ErrIncompatible),
		errors.Is(err, ErrInvalidOrExpiredRequest):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %v: %w", kind, err, ErrNetwork)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %v: %w", kind, netErr, ErrNetwork)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%s: %v: %w", kind, opErr, ErrNetwork)
	}
	return fmt.Errorf("%s: %v: %w", kind, err, ErrNetwork)
}
