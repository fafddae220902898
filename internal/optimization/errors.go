package optimization

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a minimization or an evaluation failed.
type ErrorKind int

const (
	// KindUnknown is the zero value and is never produced by this package.
	KindUnknown ErrorKind = iota
	// KindIncompatibleObjective means the objective lacks a capability
	// (gradient, Hessian, derivative) the algorithm requires.
	KindIncompatibleObjective
	// KindEvaluation means a computed value, gradient or Hessian is not finite
	// or has the wrong shape.
	KindEvaluation
	// KindUnsupportedCapability means a quantity the objective declared
	// unsupported was read.
	KindUnsupportedCapability
	// KindLineSearch means the line search could not find a conforming step.
	KindLineSearch
	// KindMaximumIterations means the iteration budget ran out before
	// convergence.
	KindMaximumIterations
	// KindInvalidArgument means the caller passed an unusable argument.
	KindInvalidArgument
	// KindLinearSolve means the Newton system could not be solved.
	KindLinearSolve
)

var kindNames = map[ErrorKind]string{
	KindUnknown:               "unknown",
	KindIncompatibleObjective: "incompatible objective",
	KindEvaluation:            "evaluation",
	KindUnsupportedCapability: "unsupported capability",
	KindLineSearch:            "line search",
	KindMaximumIterations:     "maximum iterations",
	KindInvalidArgument:       "invalid argument",
	KindLinearSolve:           "linear solve",
}

// String returns a human readable name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Sentinels for use with errors.Is. They carry a Kind and nothing else.
var (
	ErrIncompatibleObjective = &Error{Kind: KindIncompatibleObjective}
	ErrEvaluation            = &Error{Kind: KindEvaluation}
	ErrUnsupportedCapability = &Error{Kind: KindUnsupportedCapability}
	ErrLineSearch            = &Error{Kind: KindLineSearch}
	ErrMaximumIterations     = &Error{Kind: KindMaximumIterations}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument}
	ErrLinearSolve           = &Error{Kind: KindLinearSolve}
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Kind tags the failure.
	Kind ErrorKind
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Evaluation is the offending evaluation for KindEvaluation errors, or
	// the last evaluation of a run that failed for another reason.
	Evaluation Evaluation
	// Evaluation1D is the offending scalar evaluation, if any.
	Evaluation1D *Evaluation1D
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	msg := e.Message
	if msg == "" {
		msg = e.Kind.String() + " error"
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind, so that
// errors.Is(err, ErrMaximumIterations) works for any wrapped *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Message != "" || t.Op != "" || t.Component != "" || t.Err != nil || t.Evaluation != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// WithEvaluation attaches the evaluation that triggered the error.
func (e *Error) WithEvaluation(eval Evaluation) *Error {
	e.Evaluation = eval
	return e
}

// NewError creates a new optimization error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, kind ErrorKind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, kind ErrorKind, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsOptimizationError checks if an error is, or wraps, an *Error.
// If it does, it returns the outermost one and true.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the outermost *Error in err's chain,
// or KindUnknown.
func KindOf(err error) ErrorKind {
	if e, ok := IsOptimizationError(err); ok {
		return e.Kind
	}
	return KindUnknown
}
