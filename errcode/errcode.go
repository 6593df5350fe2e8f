package errcode

import (
	"context"
	"errors"
	"os"

	"encodermotor-go/drivers/encodermotor"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	Timeout        Code = "timeout"

	UnknownChannel Code = "unknown_channel"
	UnknownVerb    Code = "unknown_verb"
	NotInitialized Code = "not_initialized"
	ShortRead      Code = "short_read"
	BusFault       Code = "bus_fault"

	Error Code = "error" // generic fallback
)

// E keeps an operation name and cause next to a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches c and op to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to MapDriverErr.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return MapDriverErr(err)
}

// MapDriverErr maps encoder-motor driver errors to a Code. Transport
// deadlines map to Timeout; anything else the transport returns is reported
// as a bus fault.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, encodermotor.ErrShortRead):
		return ShortRead
	case errors.Is(err, encodermotor.ErrNotInitialized):
		return NotInitialized
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return Timeout
	default:
		return BusFault
	}
}
