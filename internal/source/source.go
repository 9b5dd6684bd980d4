package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Resource names a server-owned collection under /api/admin.
type Resource string

const (
	ResourceReports    Resource = "reports"
	ResourceUsers      Resource = "users"
	ResourceNewUsers   Resource = "new-users"
	ResourceNewReports Resource = "new-reports"
	ResourceSchedules  Resource = "schedules"
)

// Operation is a mutation applied to a single resource record.
type Operation int

const (
	OpUpdate Operation = iota
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// RawRecord is one undecoded JSON record as returned by the server.
type RawRecord = json.RawMessage

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// Unauthorized means the credential is missing or was rejected.
	// Callers must route the operator back to login instead of retrying.
	Unauthorized ErrorKind = iota + 1

	// Unreachable means the request never got an HTTP response.
	Unreachable

	// ServerRejected means the server answered with a non-success status.
	ServerRejected

	// MalformedResponse means a success response could not be decoded.
	MalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case Unreachable:
		return "unreachable"
	case ServerRejected:
		return "server rejected"
	case MalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// FetchError is the only error type returned by a Fetcher.
type FetchError struct {
	Kind     ErrorKind
	Resource Resource
	Method   string

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int

	// Reason is the server-supplied message, shown to the operator verbatim.
	Reason string

	Err error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.Resource, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (%d)", e.StatusCode)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the FetchError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsUnauthorized reports whether err (or any error in its chain) is an
// Unauthorized FetchError.
func IsUnauthorized(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Unauthorized
}

// IsUnreachable reports whether err is an Unreachable FetchError.
func IsUnreachable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Unreachable
}

// Reason returns the operator-facing message for err: the server's own
// reason when there is one, otherwise err's text.
func Reason(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Reason != "" {
		return fe.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Fetcher performs authenticated reads and writes against the admin API.
// It never retries; retry policy belongs to callers.
type Fetcher interface {
	// FetchCollection returns every record of a resource in server order.
	FetchCollection(ctx context.Context, resource Resource) ([]RawRecord, error)

	// MutateResource applies op to one record. For OpUpdate the payload is
	// a partial record and the updated record is returned when the server
	// sends one. OpDelete ignores payload and may return a nil record.
	MutateResource(
		ctx context.Context,
		resource Resource,
		id string,
		op Operation,
		payload any,
	) (RawRecord, error)
}
