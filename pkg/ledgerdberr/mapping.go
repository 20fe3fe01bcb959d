package ledgerdberr

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MapServerError translates a raw RPC error into one of the core's error
// kinds. Structured gRPC status codes are preferred; substring matching on
// the message is a fallback for servers that don't set a dedicated code
// (spec.md DESIGN NOTES §9).
func MapServerError(err error) error {
	if err == nil {
		return nil
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound:
			return mapNotFoundMessage(st.Message(), err)
		case codes.Unauthenticated, codes.PermissionDenied:
			return ierrorsWrap(ErrNotOpen, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "key not found"):
		return ierrorsWrap(ErrKeyNotFound, err)
	case strings.Contains(msg, "tx not found"), strings.Contains(msg, "transaction not found"):
		return ierrorsWrap(ErrTxNotFound, err)
	}

	return WrapTransport(err)
}

func mapNotFoundMessage(msg string, original error) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "tx"), strings.Contains(lower, "transaction"):
		return ierrorsWrap(ErrTxNotFound, original)
	default:
		return ierrorsWrap(ErrKeyNotFound, original)
	}
}

// ierrorsWrap attaches the original server error as context while
// preserving the sentinel kind for errors.Is checks.
func ierrorsWrap(kind error, original error) error {
	if original == nil || original.Error() == kind.Error() {
		return kind
	}
	return &kindError{kind: kind, original: original}
}

type kindError struct {
	kind     error
	original error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.original.Error()
}

func (e *kindError) Unwrap() error {
	return e.kind
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}
