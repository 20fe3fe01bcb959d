// Package ledgerdberr centralizes the error kinds surfaced by the
// verification core, so server-error-string matching lives in one place
// that can be audited (spec.md DESIGN NOTES §9).
package ledgerdberr

import (
	"fmt"

	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrNotOpen is returned when an operation is attempted without an
	// active session.
	ErrNotOpen = ierrors.New("client: no active session")

	// ErrAlreadyOpen is returned when Open is called on a client that
	// already holds a session.
	ErrAlreadyOpen = ierrors.New("client: session already open")

	// ErrKeyNotFound is mapped from the server's key-not-found response.
	ErrKeyNotFound = ierrors.New("key not found")

	// ErrTxNotFound is mapped from the server's tx-not-found response.
	ErrTxNotFound = ierrors.New("tx not found")

	// ErrCorruptedData indicates the server returned a structurally
	// impossible response: wrong entry counts, length mismatches, and the
	// like.
	ErrCorruptedData = ierrors.New("corrupted data returned by server")

	// ErrVerificationFailed indicates a proof, signature, or binding check
	// failed. Callers should use WrapVerification to attach the specific
	// sub-reason.
	ErrVerificationFailed = ierrors.New("verification failed")

	// ErrDeploymentMismatch indicates the server's reported deployment UUID
	// disagrees with the one already stored for this server address.
	ErrDeploymentMismatch = ierrors.New("deployment mismatch: pointing at a different server deployment")

	// ErrConnectionReleased indicates an RPC was attempted against the
	// released-connection sentinel.
	ErrConnectionReleased = ierrors.New("connection released")

	// ErrTransport wraps an underlying RPC error (timeout, unavailable)
	// while preserving the original error for inspection.
	ErrTransport = ierrors.New("transport error")
)

// WrapVerification wraps ErrVerificationFailed with a specific sub-reason,
// e.g. WrapVerification("inclusion proof root mismatch").
func WrapVerification(reason string) error {
	return ierrors.Wrap(ErrVerificationFailed, reason)
}

// WrapVerificationf is the formatted variant of WrapVerification.
func WrapVerificationf(format string, args ...any) error {
	return ierrors.Wrapf(ErrVerificationFailed, format, args...)
}

// WrapTransport wraps ErrTransport around an underlying transport error.
func WrapTransport(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
