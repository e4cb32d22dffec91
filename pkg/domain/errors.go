package domain

import (
	"errors"
	"fmt"
)

// ErrTemplateNotFound is returned when a loader or source store has no template under a name.
var ErrTemplateNotFound = errors.New("template not found")

// Structural error causes. They are always fatal.
var (
	ErrEmptyPathPart      = errors.New("empty path part")
	ErrUnknownPrefix      = errors.New("unknown expression prefix")
	ErrMalformedStatement = errors.New("malformed statement")
	ErrMacroDepth         = errors.New("macro expansion too deep")
)

// EvaluationError reports an expression that could not be evaluated because the
// expression was unusable or a host object failed during traversal.
type EvaluationError struct {
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for expression '%s': %v", e.Expression, e.Cause)
	}
	return fmt.Sprintf("evaluation error for expression '%s'", e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// NewEvaluationError creates a new evaluation error.
func NewEvaluationError(expression string, cause error) error {
	return &EvaluationError{Expression: expression, Cause: cause}
}

// MacroNotFoundError reports a METAL attribute whose expression did not yield a macro.
// It is fatal.
type MacroNotFoundError struct {
	Expression string
	// Got describes what the expression produced instead.
	Got string
}

func (e *MacroNotFoundError) Error() string {
	if e.Got != "" {
		return fmt.Sprintf("macro not found: '%s' evaluated to %s", e.Expression, e.Got)
	}
	return fmt.Sprintf("macro not found: '%s'", e.Expression)
}

// StructuralError reports malformed template syntax. It is never recovered.
type StructuralError struct {
	Expression string
	Reason     error
	Detail     string
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("%v in '%s'", e.Reason, e.Expression)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StructuralError) Unwrap() error {
	return e.Reason
}

// NewStructuralError creates a structural error with an optional detail message.
func NewStructuralError(expression string, reason error, detail string) error {
	return &StructuralError{Expression: expression, Reason: reason, Detail: detail}
}

// RenderError carries the location of a failure that escaped a render.
type RenderError struct {
	Source     SourceInfo
	Statement  string
	Expression string
	Err        error
}

func (e *RenderError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("%s: %s=%q: %v", e.Source, e.Statement, e.Expression, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err may be handled by tal:on-error or an error marker.
// Structural errors and missing macros always abort the render.
func IsRecoverable(err error) bool {
	var evalErr *EvaluationError
	var macroErr *MacroNotFoundError
	var structErr *StructuralError
	if errors.As(err, &structErr) || errors.As(err, &macroErr) {
		return false
	}
	return errors.As(err, &evalErr)
}
