// Package enrich implements the bounded-concurrency enrichment pipeline:
// classify call failures, retry transient ones with backoff, dispatch work
// under a concurrency cap and rate ceiling, and reassemble results in input
// order with aggregate statistics.
package enrich

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Status is the lifecycle state of a call outcome.
type Status string

const (
	// StatusSuccess means the call completed with a usable payload.
	StatusSuccess Status = "success"
	// StatusNotFound means the call completed but the provider had no
	// result for the key. Terminal; not an error.
	StatusNotFound Status = "not_found"
	// StatusTransient means the attempt failed in a way that is safe to
	// retry (timeout, 429, 5xx, connection reset). Never terminal.
	StatusTransient Status = "transient"
	// StatusPermanent means no retry will help (bad TLS certificate,
	// non-429 4xx, exhausted retry budget). Terminal.
	StatusPermanent Status = "permanent"
	// StatusIneligible tags records that never reached the executor
	// because the lookup key could not be resolved.
	StatusIneligible Status = "ineligible"
)

// Kind refines a failure status with its specific cause.
type Kind string

const (
	KindNone        Kind = ""
	KindTimeout     Kind = "timeout"
	KindRateLimited Kind = "rate_limited"
	KindServerError Kind = "server_error"
	KindConnection  Kind = "connection"
	KindSSL         Kind = "ssl_error"
	KindBlocked     Kind = "blocked"
	KindInvalid     Kind = "invalid"
	KindUnknown     Kind = "unknown"
)

// Outcome is the terminal result of executing one work item. It is created
// fresh per attempt and replaced, never mutated, on retry; once Terminal it
// is immutable.
type Outcome struct {
	Status   Status
	Kind     Kind
	Payload  map[string]string
	Attempts int
	Err      error
}

// Terminal reports whether no further transition can occur.
func (o Outcome) Terminal() bool {
	return o.Status != StatusTransient
}

// Tag returns the status string written onto output records: the bare
// status for success/not_found, the failure kind otherwise.
func (o Outcome) Tag() string {
	switch o.Status {
	case StatusSuccess, StatusNotFound, StatusIneligible:
		return string(o.Status)
	default:
		if o.Kind != KindNone {
			return string(o.Kind)
		}
		return string(o.Status)
	}
}

// StatusError carries an HTTP status code from a provider call so the
// classifier can map it onto the retry taxonomy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := "http " + http.StatusText(e.Code)
	if msg == "http " {
		msg = "http error"
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// NewStatusError wraps a non-2xx response status.
func NewStatusError(code int, body string) *StatusError {
	if len(body) > 200 {
		body = body[:200]
	}
	return &StatusError{Code: code, Body: body}
}

// BlockedError marks a response rejected by an edge service (Cloudflare,
// CloudFront). Retried up to budget, then terminal with kind blocked.
type BlockedError struct {
	Service string
	Code    int
}

func (e *BlockedError) Error() string {
	return e.Service + " block (http " + http.StatusText(e.Code) + ")"
}

// ErrNotFound signals a successful call with no result for the key.
var ErrNotFound = errors.New("no result for key")

// Classify maps a call error onto the outcome taxonomy.
func Classify(err error) (Status, Kind) {
	if err == nil {
		return StatusSuccess, KindNone
	}
	if errors.Is(err, ErrNotFound) {
		return StatusNotFound, KindNone
	}

	var blocked *BlockedError
	if errors.As(err, &blocked) {
		// Edge blocks sometimes clear on retry; budget exhaustion makes
		// this permanent with the blocked kind preserved.
		return StatusTransient, KindBlocked
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusTooManyRequests:
			return StatusTransient, KindRateLimited
		case status.Code == http.StatusRequestTimeout:
			return StatusTransient, KindTimeout
		case status.Code >= 500:
			return StatusTransient, KindServerError
		case status.Code >= 400:
			return StatusPermanent, KindInvalid
		}
	}

	if isCertError(err) {
		// The certificate will not fix itself on retry.
		return StatusPermanent, KindSSL
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTransient, KindTimeout
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return StatusTransient, KindConnection
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	} {
		if strings.Contains(msg, p) {
			return StatusTransient, KindConnection
		}
	}
	if strings.Contains(msg, "cloudflare") {
		return StatusTransient, KindBlocked
	}
	if strings.Contains(msg, "cloudfront") {
		return StatusTransient, KindBlocked
	}
	if strings.Contains(msg, "certificate") || strings.Contains(msg, "tls handshake") {
		return StatusPermanent, KindSSL
	}

	return StatusTransient, KindUnknown
}

func isCertError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	return errors.As(err, &verifyErr)
}
