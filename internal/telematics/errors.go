package telematics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies vendor failures. The poller switches on Kind only.
type Kind string

const (
	KindAuthentication     Kind = "authentication"
	KindAPI                Kind = "api"
	KindRateLimited        Kind = "rate_limited"
	KindNoData             Kind = "no_data"
	KindServiceUnavailable Kind = "service_unavailable"
	KindDuplicateRequest   Kind = "duplicate_request"
	KindRequestTimeout     Kind = "request_timeout"
	KindInvalidResponse    Kind = "invalid_response"
	KindKeyLookup          Kind = "key_lookup"
	KindConnection         Kind = "connection"
	KindUnclassified       Kind = "unclassified"
)

// Kinds lists every kind, classified ones first.
var Kinds = []Kind{
	KindAuthentication,
	KindAPI,
	KindRateLimited,
	KindNoData,
	KindServiceUnavailable,
	KindDuplicateRequest,
	KindRequestTimeout,
	KindInvalidResponse,
	KindKeyLookup,
	KindConnection,
	KindUnclassified,
}

// Op names the adapter operation that failed.
type Op string

const (
	OpRefreshToken      Op = "refresh_token"
	OpUpdateCachedState Op = "update_cached_state"
	OpForceRefreshState Op = "force_refresh_state"
	OpGetVehicle        Op = "get_vehicle"
)

// Error is a classified vendor failure.
type Error struct {
	Kind Kind
	Op   Op
	Err  error
}

// NewError wraps err with a kind and the failing operation.
func NewError(kind Kind, op Op, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, op Op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf classifies any error returned by an adapter. Unknown errors are
// KindUnclassified; nil is the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindRequestTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindRequestTimeout
		}
		return KindConnection
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) {
		return KindConnection
	}

	return KindUnclassified
}
