/*
Package observability turns render lifecycle events into metrics and logs.

Both Metrics.Hooks and LogHooks return domain.LifecycleHooks, so they can be
combined with LifecycleHooks.Merge and handed to the engine.
*/
package observability
