package tablestore

import (
	"errors"
	"fmt"
)

// Kind classifies client failures so callers can decide what to surface.
type Kind int

const (
	// KindConfigMissing means the base URL or API key was absent at startup.
	// Every call on such a client fails immediately without touching the
	// network.
	KindConfigMissing Kind = iota + 1
	// KindTransport covers request construction and network-level failures.
	KindTransport
	// KindRemoteRejected covers non-2xx responses from the table store.
	KindRemoteRejected
	// KindDecode covers response bodies that are not the expected JSON shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config missing"
	case KindTransport:
		return "transport"
	case KindRemoteRejected:
		return "remote rejected"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the single failure shape every client call normalizes to. Nothing
// propagates past the client boundary except values of this type.
type Error struct {
	Kind   Kind
	Op     string
	Status int // HTTP status, set for KindRemoteRejected
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRemoteRejected:
		return fmt.Sprintf("tablestore: %s: remote returned %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("tablestore: %s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("tablestore: %s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain, or zero for errors
// that did not originate here.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}
