// Package markup implements ports.DocumentProvider for HTML and XML.
package markup

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/zpt/pkg/ports"
)

// Format names accepted by ForFormat.
const (
	FormatHTML = "html"
	FormatXML  = "xml"
)

// ForFormat returns the provider for a format name.
func ForFormat(format string) (ports.DocumentProvider, error) {
	switch strings.ToLower(format) {
	case "", FormatHTML:
		return NewHTML(), nil
	case FormatXML:
		return NewXML(), nil
	}
	return nil, fmt.Errorf("unknown markup format %q", format)
}

// ForFile picks a provider from a file extension: .xml, .xhtml, .zcml and .svg are XML,
// everything else is HTML.
func ForFile(name string) ports.DocumentProvider {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml", ".xhtml", ".zcml", ".svg":
		return NewXML()
	}
	return NewHTML()
}
