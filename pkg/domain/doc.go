/*
Package domain contains the core data model of the zpt template engine.

It defines the mutable template tree rendered by the engine, the macro and slot
records used by METAL, the error taxonomy shared by every layer, and the
lifecycle events emitted during a render. This package is kept free of I/O and
of any particular markup syntax.

# Key Entities

  - Node: An element, text, comment or raw-markup node with namespaced attributes.
  - Document: A named tree. Cached documents are canonical and are cloned before every render.
  - Macro / Slot: METAL reusable subtrees and their substitution points.
  - RenderOptions: Pass-through configuration for a render (error mode, annotations, XML declaration).
  - LifecycleHooks: Observability callbacks (render start/end, macro expansion, evaluation errors).
*/
package domain
