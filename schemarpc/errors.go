package schemarpc

import "errors"

// ErrorKind classifies a pipeline failure.
type ErrorKind int

const (
	// TransportError is a failure of the node RPC call.
	TransportError ErrorKind = iota + 1
	// InvalidReferenceError means the contract's module reference could not be parsed.
	InvalidReferenceError
	// MalformedModuleError means the module source is shorter than its header.
	MalformedModuleError
	// CompileError means the payload is not a valid WebAssembly module.
	CompileError
	// AmbiguousSectionError means the schema section name matched more than one section.
	AmbiguousSectionError
)

func (k ErrorKind) String() string {
	switch k {
	case TransportError:
		return "transport error"
	case InvalidReferenceError:
		return "invalid module reference"
	case MalformedModuleError:
		return "malformed module"
	case CompileError:
		return "compile error"
	case AmbiguousSectionError:
		return "ambiguous custom section"
	default:
		return "unknown error"
	}
}

// Error is the error type produced by every pipeline step. Message is the
// text shown to the user; Err is the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is, one per ErrorKind.
var (
	ErrTransport        = &Error{Kind: TransportError}
	ErrInvalidReference = &Error{Kind: InvalidReferenceError}
	ErrMalformedModule  = &Error{Kind: MalformedModuleError}
	ErrCompile          = &Error{Kind: CompileError}
	ErrAmbiguousSection = &Error{Kind: AmbiguousSectionError}
)

// KindOf returns the kind of err, or 0 if err is not a pipeline error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Err: cause}
}
