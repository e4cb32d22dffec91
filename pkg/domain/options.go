package domain

import "fmt"

// ErrorMode selects what happens to recoverable statement errors that no
// tal:on-error handler catches.
type ErrorMode string

const (
	// ErrorModeFail aborts the render.
	ErrorModeFail ErrorMode = "fail"
	// ErrorModeMarker replaces the failing node with a diagnostic comment.
	ErrorModeMarker ErrorMode = "marker"
)

// DefaultMaxMacroDepth bounds nested use-macro/extend-macro resolution.
const DefaultMaxMacroDepth = 32

// RenderOptions is pass-through configuration for a single render.
type RenderOptions struct {
	IncludeSourceAnnotations bool
	OmitXMLDeclaration       bool
	ErrorMode                ErrorMode
	MaxMacroDepth            int
	// DefaultPrefix names the evaluator used for unprefixed expressions.
	DefaultPrefix string
	// Keywords is exposed to templates as the "options" built-in.
	Keywords map[string]any
}

// DefaultRenderOptions returns the options used when none are configured.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		ErrorMode:     ErrorModeFail,
		MaxMacroDepth: DefaultMaxMacroDepth,
		DefaultPrefix: "path",
	}
}

// Normalize fills zero values with defaults and rejects unknown error modes.
func (o RenderOptions) Normalize() (RenderOptions, error) {
	def := DefaultRenderOptions()
	if o.ErrorMode == "" {
		o.ErrorMode = def.ErrorMode
	}
	if o.ErrorMode != ErrorModeFail && o.ErrorMode != ErrorModeMarker {
		return o, fmt.Errorf("invalid error mode %q (expected %q or %q)", o.ErrorMode, ErrorModeFail, ErrorModeMarker)
	}
	if o.MaxMacroDepth <= 0 {
		o.MaxMacroDepth = def.MaxMacroDepth
	}
	if o.DefaultPrefix == "" {
		o.DefaultPrefix = def.DefaultPrefix
	}
	return o, nil
}
