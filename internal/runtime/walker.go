package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/aretw0/zpt/pkg/metal"
	"github.com/aretw0/zpt/pkg/tales"
)

// walker holds the state of a single render.
type walker struct {
	engine   *Engine
	opts     domain.RenderOptions
	macros   *metal.Resolver
	template *domain.Document
}

// visitChildren visits a snapshot of n's children; statements may replace them.
func (w *walker) visitChildren(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, depth int, guarded bool) error {
	for _, c := range slices.Clone(n.Children) {
		if err := w.visit(ctx, c, ectx, depth, guarded); err != nil {
			return err
		}
	}
	return nil
}

// visit processes one node. guarded is true when an ancestor has tal:on-error.
func (w *walker) visit(ctx context.Context, n *domain.Node, parent *tales.ExpressionContext, depth int, guarded bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch n.Type {
	case domain.ElementNode:
	case domain.DocumentNode:
		return w.visitChildren(ctx, n, parent, depth, guarded)
	default:
		return nil
	}

	err := w.element(ctx, n, parent, depth, guarded)
	if errors.Is(err, errMarked) {
		return nil
	}
	return err
}

func (w *walker) element(ctx context.Context, n *domain.Node, parent *tales.ExpressionContext, depth int, guarded bool) error {
	expanded, err := w.macroCheck(ctx, n, parent, depth, guarded)
	if err != nil {
		return err
	}
	if expanded != nil {
		return w.visit(ctx, expanded, parent, depth+1, guarded)
	}

	ectx := parent.Child(n)
	return w.guard(ctx, n, ectx, guarded, func(inner bool) error {
		return w.statements(ctx, n, ectx, depth, guarded, inner)
	})
}

// macroCheck splices in the macro used (or extended) by n. It returns the
// spliced node, or nil when n is not a use-site.
func (w *walker) macroCheck(ctx context.Context, n *domain.Node, parent *tales.ExpressionContext, depth int, guarded bool) (*domain.Node, error) {
	var (
		exp       *metal.Expansion
		err       error
		statement string
		expr      string
	)
	use, isUse := n.Attr(domain.NamespaceMETAL, domain.MetalUseMacro)
	if _, isExt := n.Attr(domain.NamespaceMETAL, domain.MetalExtendMacro); isUse && isExt {
		err := domain.NewStructuralError(use, domain.ErrMalformedStatement, "metal:use-macro and metal:extend-macro on the same element")
		return nil, w.fail(ctx, n, "metal:"+domain.MetalUseMacro, use, err, guarded)
	}
	ectx := parent.Child(n)
	if isUse {
		statement, expr = "metal:"+domain.MetalUseMacro, use
		exp, err = w.macros.GetMacro(ctx, use, ectx, depth)
		if err == nil {
			metal.FillSlots(exp.Node, n)
		}
	} else if ext, ok := n.Attr(domain.NamespaceMETAL, domain.MetalExtendMacro); ok {
		statement, expr = "metal:"+domain.MetalExtendMacro, ext
		name, _ := n.Attr(domain.NamespaceMETAL, domain.MetalDefineMacro)
		exp, err = w.macros.Expand(ctx, &domain.Macro{Name: name, Node: n, Document: w.template}, ectx, depth)
	} else {
		return nil, nil
	}
	if err != nil {
		return nil, w.fail(ctx, n, statement, expr, err, guarded)
	}

	replacement := []*domain.Node{exp.Node}
	if w.opts.IncludeSourceAnnotations {
		replacement = []*domain.Node{
			domain.NewComment(fmt.Sprintf(" begin macro %q from %s ", exp.Macro.Name, macroOrigin(exp))),
			exp.Node,
			domain.NewComment(fmt.Sprintf(" end macro %q ", exp.Macro.Name)),
		}
	}
	n.ReplaceWith(replacement...)

	w.engine.logger.DebugContext(ctx, "macro expanded",
		"template", w.template.Name, "macro", exp.Macro.Name, "source", exp.Macro.SourceName(), "extends", exp.Extended)
	if w.engine.hooks.OnMacroExpand != nil {
		w.engine.hooks.OnMacroExpand(ctx, &domain.MacroEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMacroExpand},
			Template:  w.template.Name,
			Macro:     exp.Macro.Name,
			Source:    exp.Macro.Node.Source,
			Extended:  len(exp.Extended) > 0,
		})
	}
	return exp.Node, nil
}

func macroOrigin(exp *metal.Expansion) string {
	src := exp.Macro.Node.Source
	if src.Name == "" {
		src.Name = exp.Macro.SourceName()
	}
	return src.String()
}

// errMarked stops processing of a node that fail replaced with a marker.
var errMarked = errors.New("replaced by error marker")

// guard runs fn with n's tal:on-error handler, if any, in scope.
func (w *walker) guard(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, guarded bool, fn func(inner bool) error) error {
	handler, ok := n.Attr(domain.NamespaceTAL, domain.TalOnError)
	if !ok {
		return fn(guarded)
	}
	err := fn(true)
	if err == nil || errors.Is(err, errMarked) || ctx.Err() != nil || !domain.IsRecoverable(err) || n.Parent == nil {
		return err
	}
	return w.handleError(ctx, n, ectx, handler, err, guarded)
}

func (w *walker) statements(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, depth int, outer, inner bool) error {
	ectx, err := w.define(ctx, n, ectx, inner)
	if err != nil {
		return err
	}

	if expr, ok := n.Attr(domain.NamespaceTAL, domain.TalCondition); ok {
		res, err := w.engine.dispatcher.Evaluate(ctx, expr, ectx)
		if err != nil {
			return w.fail(ctx, n, "tal:"+domain.TalCondition, expr, err, inner)
		}
		if !res.Cancelled() && !tales.IsTrue(res) {
			n.Remove()
			return nil
		}
	}

	if text, ok := n.Attr(domain.NamespaceTAL, domain.TalRepeat); ok {
		return w.repeat(ctx, n, ectx, text, depth, outer, inner)
	}
	return w.body(ctx, n, ectx, depth, inner)
}

func (w *walker) define(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, guarded bool) (*tales.ExpressionContext, error) {
	text, ok := n.Attr(domain.NamespaceTAL, domain.TalDefine)
	if !ok {
		return ectx, nil
	}
	statement := "tal:" + domain.TalDefine
	defs, err := parseDefine(text)
	if err != nil {
		return nil, w.fail(ctx, n, statement, text, err, guarded)
	}
	for _, d := range defs {
		res, err := w.engine.dispatcher.Evaluate(ctx, d.expr, ectx)
		if err != nil {
			return nil, w.fail(ctx, n, statement, d.expr, err, guarded)
		}
		if res.Cancelled() {
			continue
		}
		if d.scope == scopeGlobal {
			ectx.DefineGlobal(d.name, res.Value())
		} else {
			ectx = ectx.WithLocal(d.name, res.Value())
		}
	}
	return ectx, nil
}

func (w *walker) repeat(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, text string, depth int, outer, inner bool) error {
	statement := "tal:" + domain.TalRepeat
	name, expr, err := parseRepeat(text)
	if err != nil {
		return w.fail(ctx, n, statement, text, err, inner)
	}
	res, err := w.engine.dispatcher.Evaluate(ctx, expr, ectx)
	if err != nil {
		return w.fail(ctx, n, statement, expr, err, inner)
	}
	if res.Cancelled() {
		n.RemoveAttr(domain.NamespaceTAL, domain.TalRepeat)
		return w.body(ctx, n, ectx, depth, inner)
	}
	items, err := tales.Sequence(ctx, res.Value())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return w.fail(ctx, n, statement, expr, domain.NewEvaluationError(expr, err), inner)
	}

	clones := make([]*domain.Node, len(items))
	for i := range items {
		c := n.Clone()
		c.RemoveAttr(domain.NamespaceTAL, domain.TalRepeat)
		c.RemoveAttr(domain.NamespaceTAL, domain.TalDefine)
		c.RemoveAttr(domain.NamespaceTAL, domain.TalCondition)
		clones[i] = c
	}
	n.ReplaceWith(clones...)

	for i, c := range clones {
		if err := ctx.Err(); err != nil {
			return err
		}
		state := &tales.RepeatState{Name: name, Index: i, Length: len(items), Key: items[i].Key}
		ictx := ectx.WithNode(c).WithRepeat(name, items[i].Value, state)
		err := w.guard(ctx, c, ictx, outer, func(g bool) error {
			return w.body(ctx, c, ictx, depth, g)
		})
		if err != nil && !errors.Is(err, errMarked) {
			return err
		}
	}
	return nil
}

// body applies content/replace, attributes and omit-tag, then recurses.
func (w *walker) body(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, depth int, guarded bool) error {
	content, hasContent := n.Attr(domain.NamespaceTAL, domain.TalContent)
	replace, hasReplace := n.Attr(domain.NamespaceTAL, domain.TalReplace)
	if hasContent && hasReplace {
		err := domain.NewStructuralError(content, domain.ErrMalformedStatement, "tal:content and tal:replace on the same element")
		return w.fail(ctx, n, "tal:"+domain.TalContent, content, err, guarded)
	}

	if hasReplace {
		structure, expr := parseContent(replace)
		res, err := w.engine.dispatcher.Evaluate(ctx, expr, ectx)
		if err != nil {
			return w.fail(ctx, n, "tal:"+domain.TalReplace, replace, err, guarded)
		}
		if !res.Cancelled() {
			n.ReplaceWith(contentNodes(res.Value(), structure)...)
			return nil
		}
	}

	replaced := false
	if hasContent {
		structure, expr := parseContent(content)
		res, err := w.engine.dispatcher.Evaluate(ctx, expr, ectx)
		if err != nil {
			return w.fail(ctx, n, "tal:"+domain.TalContent, content, err, guarded)
		}
		if !res.Cancelled() {
			n.SetChildren(contentNodes(res.Value(), structure)...)
			replaced = true
		}
	}

	if text, ok := n.Attr(domain.NamespaceTAL, domain.TalAttributes); ok {
		if err := w.attributes(ctx, n, ectx, text, guarded); err != nil {
			return err
		}
	}

	omit := n.Namespace == domain.NamespaceTAL || n.Namespace == domain.NamespaceMETAL
	if expr, ok := n.Attr(domain.NamespaceTAL, domain.TalOmitTag); ok {
		if strings.TrimSpace(expr) == "" {
			omit = true
		} else {
			res, err := w.engine.dispatcher.Evaluate(ctx, expr, ectx)
			if err != nil {
				return w.fail(ctx, n, "tal:"+domain.TalOmitTag, expr, err, guarded)
			}
			if !res.Cancelled() {
				omit = tales.IsTrue(res)
			}
		}
	}

	if !replaced {
		if err := w.visitChildren(ctx, n, ectx, depth, guarded); err != nil {
			return err
		}
	}
	finish(n, omit)
	return nil
}

func (w *walker) attributes(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, text string, guarded bool) error {
	statement := "tal:" + domain.TalAttributes
	attrs, err := parseAttributes(text)
	if err != nil {
		return w.fail(ctx, n, statement, text, err, guarded)
	}
	for _, a := range attrs {
		res, err := w.engine.dispatcher.Evaluate(ctx, a.expr, ectx)
		if err != nil {
			return w.fail(ctx, n, statement, a.expr, err, guarded)
		}
		if res.Cancelled() {
			continue
		}
		switch v := res.Value().(type) {
		case nil:
			removeAttribute(n, a.name)
		case bool:
			// Boolean attributes: present with their own name, or absent.
			if v {
				setAttribute(n, a.name, a.name)
			} else {
				removeAttribute(n, a.name)
			}
		default:
			setAttribute(n, a.name, tales.FormatValue(v))
		}
	}
	return nil
}

// finish strips template attributes and, when asked, the element's own tags.
func finish(n *domain.Node, omit bool) {
	n.RemoveNamespace(domain.NamespaceTAL, domain.NamespaceMETAL)
	if omit {
		n.Unwrap()
	}
}

// contentNodes converts a statement value to the nodes that replace content.
// Text values are escaped on output; structure values are inserted verbatim.
func contentNodes(v any, structure bool) []*domain.Node {
	if v == nil {
		return nil
	}
	if !structure {
		return []*domain.Node{domain.NewText(tales.FormatValue(v))}
	}
	switch x := v.(type) {
	case *domain.Document:
		return slices.Clone(x.Clone().Root.Children)
	case *domain.Macro:
		return []*domain.Node{x.Node.Clone()}
	case *domain.Node:
		if x.Type == domain.DocumentNode {
			return slices.Clone(x.Clone().Children)
		}
		return []*domain.Node{x.Clone()}
	}
	return []*domain.Node{domain.NewRaw(tales.FormatValue(v))}
}

// ErrorInfo is bound to "error" while a tal:on-error handler runs.
type ErrorInfo struct {
	Type       string
	Value      string
	Statement  string
	Expression string
	Err        error
}

func newErrorInfo(err error) ErrorInfo {
	info := ErrorInfo{Type: "Error", Value: err.Error(), Err: err}
	var rerr *domain.RenderError
	if errors.As(err, &rerr) {
		info.Statement, info.Expression = rerr.Statement, rerr.Expression
		info.Value = rerr.Err.Error()
	}
	var evalErr *domain.EvaluationError
	if errors.As(err, &evalErr) {
		info.Type = "EvaluationError"
		if evalErr.Cause != nil {
			info.Value = evalErr.Cause.Error()
		}
	}
	return info
}

// handleError replaces n's content with the result of its on-error handler.
func (w *walker) handleError(ctx context.Context, n *domain.Node, ectx *tales.ExpressionContext, handler string, cause error, outer bool) error {
	hctx := ectx.WithLocal("error", newErrorInfo(cause))
	structure, expr := parseContent(handler)
	res, err := w.engine.dispatcher.Evaluate(ctx, expr, hctx)
	if err != nil {
		return w.fail(ctx, n, "tal:"+domain.TalOnError, handler, err, outer)
	}
	w.engine.logger.DebugContext(ctx, "error handled", "template", w.template.Name, "source", n.Source.String(), "error", cause)
	if !res.Cancelled() {
		n.SetChildren(contentNodes(res.Value(), structure)...)
	}
	finish(n, n.Namespace == domain.NamespaceTAL || n.Namespace == domain.NamespaceMETAL)
	return nil
}

// fail decides what happens to a statement error raised at n. Recoverable
// errors under an on-error handler are returned for the handler to catch; in
// marker mode they replace n with a comment; otherwise they abort the render.
func (w *walker) fail(ctx context.Context, n *domain.Node, statement, expr string, err error, guarded bool) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	rerr := &domain.RenderError{Source: n.Source, Statement: statement, Expression: expr, Err: err}
	if rerr.Source.Name == "" {
		rerr.Source.Name = w.template.Name
	}
	if !domain.IsRecoverable(err) {
		return rerr
	}

	marker := !guarded && w.opts.ErrorMode == domain.ErrorModeMarker
	if w.engine.hooks.OnEvaluationError != nil {
		w.engine.hooks.OnEvaluationError(ctx, &domain.ErrorEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventEvaluationError},
			Template:   w.template.Name,
			Statement:  statement,
			Expression: expr,
			Source:     rerr.Source,
			Err:        err,
			Recovered:  guarded || marker,
		})
	}
	if !marker {
		return rerr
	}
	w.engine.logger.WarnContext(ctx, "statement failed, inserting error marker",
		"template", w.template.Name, "source", rerr.Source.String(), "statement", statement, "error", err)
	n.ReplaceWith(domain.NewComment(" " + commentSafe(rerr.Error()) + " "))
	return errMarked
}

func commentSafe(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	return strings.TrimSuffix(s, "-")
}
