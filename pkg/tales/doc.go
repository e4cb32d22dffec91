// Package tales evaluates template attribute expressions.
//
// An expression is an optional "prefix:" followed by text. The Dispatcher routes
// it to the Evaluator registered for the prefix, or to the default evaluator
// (path) when there is none. Evaluation yields a Result: a value, which may be
// nil, or a cancellation meaning "leave the node as written".
//
// Scopes are ExpressionContext values chained from node to parent. Local
// bindings are visible to descendants; global bindings live on the shared root.
package tales
