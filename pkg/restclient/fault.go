// Package restclient implements the typed retry/classification REST
// transport over the managed API gateway control plane, grounded on
// original_source/src/apy_ops/apim_client.py and exceptions.py.
package restclient

import (
	"fmt"
	"strings"
)

// Fault is the typed error raised for every non-2xx REST response, carrying
// enough of the upstream error envelope to classify and report the
// failure. Grounded on exceptions.py's ApimError hierarchy, collapsed into
// one struct with a Transient flag rather than a Go type hierarchy — the
// retry/classification layer only ever branches on Transient.
type Fault struct {
	StatusCode int
	ErrorCode  string
	Message    string
	RequestID  string
	Transient  bool
}

func (f *Fault) Error() string {
	if f.ErrorCode != "" {
		return fmt.Sprintf("status %d (%s): %s", f.StatusCode, f.ErrorCode, f.Message)
	}
	return fmt.Sprintf("status %d: %s", f.StatusCode, f.Message)
}

// Label returns a short human hint saying whether the fault is transient or
// permanent.
func (f *Fault) Label() string {
	if f.Transient {
		return "transient (may work on next run)"
	}
	return "permanent (fix and re-run)"
}

// classify implements the status/error-code table from spec.md §4.4.
func classify(statusCode int, errorCode, message, requestID string) *Fault {
	f := &Fault{StatusCode: statusCode, ErrorCode: errorCode, Message: message, RequestID: requestID}
	switch {
	case statusCode == 429, statusCode == 412, statusCode >= 500:
		f.Transient = true
	case statusCode == 409:
		f.Transient = containsAny(errorCode, "PessimisticConcurrencyConflict") || errorCode == "Conflict"
	case statusCode == 422:
		f.Transient = containsAny(errorCode, "ManagementApiFailure")
	default:
		f.Transient = false
	}
	return f
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
