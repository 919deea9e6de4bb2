// Package fault is the error taxonomy shared by the remote adapters
// and the API layer. No operation retries automatically; every fault
// carries a message fit for direct display.
package fault

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

type Kind int

const (
	// Transport covers network and unclassified API errors. The user
	// may retry manually.
	Transport Kind = iota
	// PermissionDenied is a 403-class error: the account lacks access
	// to the spreadsheet and needs manual remediation, not a retry.
	PermissionDenied
	// NotFound means an expected sheet or row is missing. Depending on
	// context this triggers re-initialization or a fatal message.
	NotFound
	// Validation is a client-side reject, raised before any remote call.
	Validation
	// Busy means a user-triggered mutation is already in flight.
	Busy
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case Busy:
		return "busy"
	default:
		return "transport"
	}
}

// Fault pairs a kind with a human-readable message and the underlying
// cause.
type Fault struct {
	Kind Kind
	Msg  string
	Err  error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return f.Msg + ": " + f.Err.Error()
	}
	return f.Msg
}

func (f *Fault) Unwrap() error { return f.Err }

func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to Transport.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Transport
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}

// FromGoogleAPI classifies a Sheets API error. 403 is kept distinct
// because it implies a sharing misconfiguration the user must fix.
func FromGoogleAPI(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 403:
			return Wrap(PermissionDenied, err, "%s: the account has no access to this spreadsheet", op)
		case 404:
			return Wrap(NotFound, err, "%s: spreadsheet or sheet not found", op)
		}
	}
	return Wrap(Transport, err, "%s failed", op)
}
