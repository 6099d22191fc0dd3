// Package extractor turns raw document bytes into plain text by file extension.
package extractor

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions without a registered extractor.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extractor converts raw bytes into text. Empty text is a valid result.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Func adapts a function to Extractor.
type Func func(data []byte) (string, error)

// Extract calls fn.
func (fn Func) Extract(data []byte) (string, error) { return fn(data) }

// Factory selects an extractor by extension.
type Factory struct {
	byExtension map[string]Extractor
}

// NewFactory returns a factory with text, pdf, docx, xlsx and xls extractors registered.
func NewFactory() *Factory {
	f := &Factory{byExtension: map[string]Extractor{}}
	plain := Func(extractPlain)
	for _, ext := range []string{".txt", ".md", ".markdown", ".csv", ".json", ".html", ".htm"} {
		f.Register(ext, plain)
	}
	f.Register(".pdf", Func(extractPDF))
	f.Register(".docx", Func(extractDOCX))
	f.Register(".xlsx", Func(extractXLSX))
	f.Register(".xls", Func(extractXLS))
	return f
}

// Register sets the extractor for ext (with or without leading dot).
func (f *Factory) Register(ext string, extractor Extractor) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f.byExtension[ext] = extractor
}

// Supports reports whether name has a registered extension.
func (f *Factory) Supports(name string) bool {
	_, ok := f.byExtension[strings.ToLower(path.Ext(name))]
	return ok
}

// Extract converts data according to the extension of name.
func (f *Factory) Extract(name string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(name))
	extractor, ok := f.byExtension[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	text, err := extractor.Extract(data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", name, err)
	}
	return text, nil
}

func extractPlain(data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), ""), nil
}
