package server

import "fmt"

// ErrorKind classifies a failed request so the command layer knows how to
// present it. None of these indicate a server fault.
type ErrorKind int

const (
	// KindClient: the acting session's request is invalid given current
	// state (locked area, taken character, active cooldown, ...).
	KindClient ErrorKind = iota
	// KindArea: a referenced area, hub, evidence item or link does not
	// resolve, or a topology document is malformed.
	KindArea
	// KindArgument: malformed command arguments.
	KindArgument
	// KindServer: a trusted catalog lookup (song, character) found nothing.
	KindServer
)

// Error is the single error type raised by core mutators. State is always
// left untouched when one of these propagates.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func clientError(format string, args ...any) *Error {
	return &Error{Kind: KindClient, Msg: fmt.Sprintf(format, args...)}
}

func areaError(format string, args ...any) *Error {
	return &Error{Kind: KindArea, Msg: fmt.Sprintf(format, args...)}
}

func argumentError(format string, args ...any) *Error {
	return &Error{Kind: KindArgument, Msg: fmt.Sprintf(format, args...)}
}

func serverError(format string, args ...any) *Error {
	return &Error{Kind: KindServer, Msg: fmt.Sprintf(format, args...)}
}

// ClientErr builds a KindClient error; exported for command layers.
func ClientErr(format string, args ...any) *Error { return clientError(format, args...) }

// ArgumentErr builds a KindArgument error; exported for command layers.
func ArgumentErr(format string, args ...any) *Error { return argumentError(format, args...) }

// IsKind reports whether err is a core Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
