package errcode

import "errors"

// Code is a stable, short error identifier shared by the node and the
// gateway. It is a string newtype, comparable, allocation-free, and
// implements error. The gateway also uses codes as metrics labels, so they
// must stay lowercase snake_case and must not change once released.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes.
const (
	OK            Code = "ok"
	InvalidParams Code = "invalid_params"

	// Capture / link-layer parsing.
	InvalidLength    Code = "invalid_length"
	ParseFailed      Code = "parse_failed"
	NotAdvertisement Code = "not_advertisement"

	// Beacon payload decoding.
	ShortPayload     Code = "short_payload"
	TruncatedPayload Code = "truncated_payload"
	UnknownTag       Code = "unknown_tag"
	WrongVendor      Code = "wrong_vendor"

	// Measurement building and filtering.
	UnknownAddress Code = "unknown_address"
	MissingName    Code = "missing_name"
	MissingCounter Code = "missing_counter"
	Duplicate      Code = "duplicate"

	// Node side.
	NotReady   Code = "not_ready"
	AdvTooLong Code = "adv_too_long"

	// Sink submission.
	NotFound     Code = "not_found"
	SinkRejected Code = "sink_rejected"
	Timeout      Code = "timeout"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from anywhere in an error chain, defaulting to Error.
// The outermost code wins, so wrapping with fmt.Errorf("...: %w", err) keeps
// the original classification.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}
