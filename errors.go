package dbf

import (
	"errors"
	"fmt"
)

var (
	ErrIO             = errors.New("dbf: io failure")
	ErrFormat         = errors.New("dbf: invalid header")
	ErrCorrupt        = errors.New("dbf: corrupt record")
	ErrFieldCoercion  = errors.New("dbf: field coercion failed")
	ErrSessionErrored = errors.New("dbf: session is in error state")
	ErrClosed         = errors.New("dbf: session is closed")
	ErrCharsetLocked  = errors.New("dbf: charset cannot change after decoding started")
	ErrUnknownCharset = errors.New("dbf: unknown charset")
)

type OpenErrorKind int

const (
	OpenIO OpenErrorKind = iota
	OpenFormat
)

// OpenError is returned when a session cannot be opened. No partial schema
// is usable after it.
type OpenError struct {
	Kind OpenErrorKind
	Name string
	Err  error
}

func (e *OpenError) Error() string {
	what := "reading dbf file"
	if e.Kind == OpenFormat {
		what = "opening dbf metadata"
	}
	if e.Name != "" {
		return fmt.Sprintf("error %s [%s]: %v", what, e.Name, e.Err)
	}
	return fmt.Sprintf("error %s: %v", what, e.Err)
}

func (e *OpenError) Unwrap() []error {
	if e.Kind == OpenFormat {
		return []error{ErrFormat, e.Err}
	}
	return []error{ErrIO, e.Err}
}

type DecodeErrorKind int

const (
	DecodeCorrupt DecodeErrorKind = iota
	DecodeFieldCoercion
)

// DecodeError is returned by Decode. Field and Name are set for
// DecodeFieldCoercion only; Field is zero based.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field int
	Name  string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Kind == DecodeFieldCoercion {
		return fmt.Sprintf("error parsing field #%d : %s: %v", e.Field+1, e.Name, e.Err)
	}
	return fmt.Sprintf("unable to read row from dbf file: %v", e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Kind == DecodeFieldCoercion {
		return []error{ErrFieldCoercion, e.Err}
	}
	return []error{ErrCorrupt, e.Err}
}

func formatErr(name string, format string, args ...any) error {
	return &OpenError{Kind: OpenFormat, Name: name, Err: fmt.Errorf(format, args...)}
}

func ioErr(name string, err error) error {
	return &OpenError{Kind: OpenIO, Name: name, Err: err}
}
