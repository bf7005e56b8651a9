package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// Kind classifies a fetch failure. The classification string becomes the
// item's last_error, so the messages stay short and human-readable.
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindConnRefused Kind = "connection_refused"
	KindDNS         Kind = "dns_failure"
	KindConnReset   Kind = "connection_reset"
	KindHTTPStatus  Kind = "http_status"
	KindUnknown     Kind = "unknown"
)

// Error is the typed failure returned by the fetcher.
type Error struct {
	Kind   Kind
	Status int // set only for KindHTTPStatus
	msg    string
}

func (e *Error) Error() string { return e.msg }

func httpStatusError(status int) *Error {
	return &Error{Kind: KindHTTPStatus, Status: status, msg: fmt.Sprintf("HTTP %d", status)}
}

// Classify maps a transport error onto the taxonomy, in priority order:
// timeout, connection refused, DNS failure, connection reset, then the raw
// transport message.
func Classify(err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, msg: "request timed out"}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindConnRefused, msg: "connection refused"}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{Kind: KindDNS, msg: "DNS resolution failed"}
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return &Error{Kind: KindConnReset, msg: "connection reset by peer"}
	}

	// url.Error wraps every client failure; unwrap so the raw message does
	// not repeat the method and URL.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: KindUnknown, msg: urlErr.Err.Error()}
	}
	return &Error{Kind: KindUnknown, msg: err.Error()}
}
