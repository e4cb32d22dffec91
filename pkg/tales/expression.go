package tales

import (
	"context"
	"strings"
)

// Expression is an optional prefix plus the remainder of an attribute's text.
type Expression struct {
	Prefix string
	Text   string
}

func (e Expression) String() string {
	if e.Prefix == "" {
		return e.Text
	}
	return e.Prefix + ":" + e.Text
}

// Evaluator is the plug-in contract for expression types.
// It receives the remainder text (without its prefix) and the scope to evaluate it in.
type Evaluator interface {
	Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error) {
	return f(ctx, expr, ectx)
}

// splitPrefix returns the text before the first ':' when it looks like a prefix name.
func splitPrefix(text string) (prefix, rest string, ok bool) {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	idx := strings.IndexByte(trimmed, ':')
	if idx <= 0 {
		return "", text, false
	}
	candidate := trimmed[:idx]
	if !isPrefixName(candidate) {
		return "", text, false
	}
	return candidate, strings.TrimLeft(trimmed[idx+1:], " \t\r\n"), true
}

func isPrefixName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_' || r == '-'):
		default:
			return false
		}
	}
	return s != ""
}
