/*
Package ports defines the driven ports (interfaces) of the template engine.

These interfaces decouple template expansion from where templates are stored
and how markup is read and written.

# Key Interfaces

  - SourceStore: Raw template bytes by name (memory, filesystem, Redis).
  - DocumentProvider: Parses markup into a document tree and serializes it back (HTML, XML).
  - TemplateLoader: Resolves a template name to a parsed, cached document.
*/
package ports
