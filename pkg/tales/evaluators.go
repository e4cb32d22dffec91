package tales

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/aretw0/zpt/pkg/domain"
)

// placeholderPattern matches "$$", "${path}" and "$name" in a single scan.
var placeholderPattern = regexp.MustCompile(`\$\$|\$\{([^}]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// StringEvaluator interpolates placeholders whose bodies are path expressions.
type StringEvaluator struct {
	paths *PathEvaluator
}

// NewStringEvaluator creates a string: evaluator that resolves placeholders with paths.
func NewStringEvaluator(paths *PathEvaluator) *StringEvaluator {
	return &StringEvaluator{paths: paths}
}

// Evaluate substitutes placeholders. Placeholders are evaluated left to right and
// spliced back to front so earlier match offsets stay valid. A placeholder that
// evaluates to the cancellation sentinel cancels the whole expression.
func (s *StringEvaluator) Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error) {
	text := expr.Text
	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return ValueOf(text), nil
	}

	replacements := make([]string, len(matches))
	for i, m := range matches {
		if text[m[0]:m[1]] == "$$" {
			replacements[i] = "$"
			continue
		}
		var body string
		if m[2] >= 0 {
			body = text[m[2]:m[3]]
		} else {
			body = text[m[4]:m[5]]
		}
		p, err := ParsePath(body)
		if err != nil {
			return Result{}, err
		}
		res, err := s.paths.EvaluatePath(ctx, p, ectx)
		if err != nil {
			return Result{}, err
		}
		if res.Cancelled() {
			return Cancel, nil
		}
		replacements[i] = FormatValue(res.Value())
	}

	out := text
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		out = out[:m[0]] + replacements[i] + out[m[1]:]
	}
	return ValueOf(out), nil
}

// NotEvaluator negates the truthiness of its operand expression.
type NotEvaluator struct {
	dispatcher *Dispatcher
}

// NewNotEvaluator creates a not: evaluator that evaluates operands with d.
func NewNotEvaluator(d *Dispatcher) *NotEvaluator {
	return &NotEvaluator{dispatcher: d}
}

// Evaluate returns a boolean. A cancelled operand counts as false, so the result is true.
func (n *NotEvaluator) Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error) {
	res, err := n.dispatcher.Evaluate(ctx, expr.Text, ectx)
	if err != nil {
		return Result{}, err
	}
	return ValueOf(!IsTrue(res)), nil
}

// ExistsEvaluator reports whether its operand resolves.
type ExistsEvaluator struct {
	dispatcher *Dispatcher
}

// NewExistsEvaluator creates an exists: evaluator.
func NewExistsEvaluator(d *Dispatcher) *ExistsEvaluator {
	return &ExistsEvaluator{dispatcher: d}
}

// Evaluate is true unless the operand cancels. A nil value exists.
func (e *ExistsEvaluator) Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error) {
	res, err := e.dispatcher.Evaluate(ctx, expr.Text, ectx)
	if err != nil {
		return Result{}, err
	}
	return ValueOf(!res.Cancelled()), nil
}

// TemplateLoader resolves template names to parsed documents.
type TemplateLoader interface {
	Load(ctx context.Context, name string) (*domain.Document, error)
}

// LoadEvaluator loads another template, typically to reach its macros.
type LoadEvaluator struct {
	dispatcher *Dispatcher
	loader     TemplateLoader
}

// NewLoadEvaluator creates a load: evaluator.
func NewLoadEvaluator(d *Dispatcher, loader TemplateLoader) *LoadEvaluator {
	return &LoadEvaluator{dispatcher: d, loader: loader}
}

// Evaluate resolves the operand to a template name and loads it. An operand
// that cancels is taken literally, so "load: layout.html" works unquoted.
// Names starting with "./" or "../" are relative to the current template.
func (l *LoadEvaluator) Evaluate(ctx context.Context, expr Expression, ectx *ExpressionContext) (Result, error) {
	res, err := l.dispatcher.Evaluate(ctx, expr.Text, ectx)
	if err != nil {
		return Result{}, err
	}

	var name string
	switch {
	case res.Cancelled():
		name = strings.TrimSpace(expr.Text)
	default:
		switch v := res.Value().(type) {
		case *domain.Document:
			return ValueOf(v), nil
		case string:
			name = v
		case nil:
			return ValueOf(nil), nil
		default:
			return Result{}, domain.NewEvaluationError(expr.String(), fmt.Errorf("cannot load %T", v))
		}
	}

	if l.loader == nil {
		return Result{}, domain.NewEvaluationError(expr.String(), fmt.Errorf("no template loader configured"))
	}
	name = relativeTo(ectx, name)
	doc, err := l.loader.Load(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, domain.NewEvaluationError(expr.String(), err)
	}
	return ValueOf(doc), nil
}

func relativeTo(ectx *ExpressionContext, name string) string {
	if !strings.HasPrefix(name, "./") && !strings.HasPrefix(name, "../") {
		return name
	}
	tmpl := ectx.Template()
	if tmpl == nil || tmpl.Name == "" {
		return path.Clean(name)
	}
	return path.Join(path.Dir(tmpl.Name), name)
}
