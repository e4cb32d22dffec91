package tales

// abortActionToken is the value of the "default" built-in.
type abortActionToken struct{}

func (abortActionToken) String() string { return "default" }

// AbortActionToken is the sentinel meaning "treat this statement as not present".
// It is distinct from nil, which is a legitimate value.
var AbortActionToken any = abortActionToken{}

// IsAbortActionToken reports whether v is the sentinel.
func IsAbortActionToken(v any) bool {
	_, ok := v.(abortActionToken)
	return ok
}

// Result is the outcome of evaluating an expression: a value (possibly nil) or a cancellation.
type Result struct {
	value     any
	cancelled bool
}

// Cancel is the result carrying AbortActionToken.
var Cancel = Result{cancelled: true}

// ValueOf wraps v. Wrapping the sentinel yields Cancel.
func ValueOf(v any) Result {
	if IsAbortActionToken(v) {
		return Cancel
	}
	return Result{value: v}
}

// Cancelled reports whether the result is the AbortActionToken.
func (r Result) Cancelled() bool {
	return r.cancelled
}

// Value returns the evaluated value. It is nil for a cancelled result.
func (r Result) Value() any {
	return r.value
}

// IsNothing reports whether the result is a successful nil.
func (r Result) IsNothing() bool {
	return !r.cancelled && r.value == nil
}

func (r Result) String() string {
	if r.cancelled {
		return "<default>"
	}
	if r.value == nil {
		return "<nothing>"
	}
	return FormatValue(r.value)
}
