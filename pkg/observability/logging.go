package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/zpt/pkg/domain"
)

// LogHooks logs lifecycle events: render boundaries and macro expansions at
// Debug, evaluation errors at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRenderStart: func(ctx context.Context, e *domain.RenderEvent) {
			logger.DebugContext(ctx, "render_start", "template", e.Template)
		},
		OnRenderEnd: func(ctx context.Context, e *domain.RenderEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "render_end", "template", e.Template, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "render_end", "template", e.Template, "duration", e.Duration)
		},
		OnMacroExpand: func(ctx context.Context, e *domain.MacroEvent) {
			logger.DebugContext(ctx, "macro_expand", "template", e.Template, "macro", e.Macro, "source", e.Source.String())
		},
		OnEvaluationError: func(ctx context.Context, e *domain.ErrorEvent) {
			logger.WarnContext(ctx, "evaluation_error",
				"template", e.Template,
				"statement", e.Statement,
				"expression", e.Expression,
				"source", e.Source.String(),
				"recovered", e.Recovered,
				"error", e.Err,
			)
		},
	}
}
