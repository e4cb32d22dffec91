package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRenderStart     EventType = "render_start"
	EventRenderEnd       EventType = "render_end"
	EventMacroExpand     EventType = "macro_expand"
	EventEvaluationError EventType = "evaluation_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// RenderEvent marks the start or end of a render.
type RenderEvent struct {
	EventBase
	Template string        `json:"template"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// MacroEvent is emitted for every macro spliced into a render.
type MacroEvent struct {
	EventBase
	Template string     `json:"template"`
	Macro    string     `json:"macro"`
	Source   SourceInfo `json:"source"`
	Extended bool       `json:"extended,omitempty"`
}

// ErrorEvent is emitted when a statement fails to evaluate.
type ErrorEvent struct {
	EventBase
	Template   string     `json:"template"`
	Statement  string     `json:"statement"`
	Expression string     `json:"expression"`
	Source     SourceInfo `json:"source"`
	Err        error      `json:"-"`
	// Recovered is true when tal:on-error or an error marker absorbed the failure.
	Recovered bool `json:"recovered"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnRenderStart     func(context.Context, *RenderEvent)
	OnRenderEnd       func(context.Context, *RenderEvent)
	OnMacroExpand     func(context.Context, *MacroEvent)
	OnEvaluationError func(context.Context, *ErrorEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRenderStart:     chain(h.OnRenderStart, other.OnRenderStart),
		OnRenderEnd:       chain(h.OnRenderEnd, other.OnRenderEnd),
		OnMacroExpand:     chain(h.OnMacroExpand, other.OnMacroExpand),
		OnEvaluationError: chain(h.OnEvaluationError, other.OnEvaluationError),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
