package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge lifecycle the error occurred
type Phase string

const (
	PhaseConfig    Phase = "config"    // instance parameters
	PhaseTransport Phase = "transport" // loader script and module fetch
	PhaseInit      Phase = "init"      // foreign module initialization
	PhaseDispatch  Phase = "dispatch"  // inbound handler delivery
	PhaseProtocol  Phase = "protocol"  // cross-realm envelopes
	PhaseEncode    Phase = "encode"    // Go to wire
	PhaseDecode    Phase = "decode"    // wire to Go
	PhaseTeardown  Phase = "teardown"  // disposal
)

// Kind categorizes the error
type Kind string

const (
	KindMissingParam    Kind = "missing_param"
	KindInvalidParam    Kind = "invalid_param"
	KindLoadFailed      Kind = "load_failed"
	KindInitFailed      Kind = "init_failed"
	KindHandlerPanic    Kind = "handler_panic"
	KindInvalidEnvelope Kind = "invalid_envelope"
	KindInvalidEvent    Kind = "invalid_event"
	KindInvalidEnum     Kind = "invalid_enum"
	KindDisposed        Kind = "disposed"
	KindNotFound        Kind = "not_found"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidState    Kind = "invalid_state"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Instance string
	Field    string
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Instance != "" {
		b.WriteString(" (instance ")
		b.WriteString(e.Instance)
		b.WriteByte(')')
	}

	if e.Field != "" {
		b.WriteString(" at ")
		b.WriteString(e.Field)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Instance sets the bridge instance identifier
func (b *Builder) Instance(id string) *Builder {
	b.err.Instance = id
	return b
}

// Field sets the offending parameter or field name
func (b *Builder) Field(name string) *Builder {
	b.err.Field = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MissingParam creates a configuration error for an absent required parameter
func MissingParam(instance, name string) *Error {
	return &Error{
		Phase:    PhaseConfig,
		Kind:     KindMissingParam,
		Instance: instance,
		Field:    name,
		Detail:   fmt.Sprintf("required parameter %q is missing", name),
	}
}

// InvalidParam creates a configuration error for a malformed parameter
func InvalidParam(instance, name string, value any) *Error {
	return &Error{
		Phase:    PhaseConfig,
		Kind:     KindInvalidParam,
		Instance: instance,
		Field:    name,
		Detail:   fmt.Sprintf("invalid value %v", value),
		Value:    value,
	}
}

// LoadFailed creates a transport error for a loader script or module that could not be fetched
func LoadFailed(instance, path string, cause error) *Error {
	return &Error{
		Phase:    PhaseTransport,
		Kind:     KindLoadFailed,
		Instance: instance,
		Detail:   fmt.Sprintf("load %s", path),
		Cause:    cause,
	}
}

// InitFailed creates an initialization error
func InitFailed(instance string, cause error) *Error {
	return &Error{
		Phase:    PhaseInit,
		Kind:     KindInitFailed,
		Instance: instance,
		Detail:   "foreign module initialization failed",
		Cause:    cause,
	}
}

// HandlerPanic creates a dispatch error for a recovered subscriber panic
func HandlerPanic(recovered any) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHandlerPanic,
		Detail: fmt.Sprintf("inbound handler panicked: %v", recovered),
		Value:  recovered,
	}
}

// InvalidEnvelope creates a protocol error for an undecodable or malformed envelope
func InvalidEnvelope(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseProtocol,
		Kind:   KindInvalidEnvelope,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidEvent creates an event shape error
func InvalidEvent(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEvent,
		Detail: detail,
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, field string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Field:  field,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
	}
}

// Disposed creates an error for operations on a torn-down instance
func Disposed(instance string) *Error {
	return &Error{
		Phase:    PhaseTeardown,
		Kind:     KindDisposed,
		Instance: instance,
		Detail:   "instance disposed",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// OutOfBounds creates an out of bounds error for guest memory access
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("memory access [%d, %d) out of bounds", offset, uint64(offset)+uint64(length)),
		Value:  offset,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
