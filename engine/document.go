package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is the structured format a document must satisfy after patching.
type Format string

const (
	FormatJSON       Format = "json"
	FormatSourceText Format = "source-text"
)

// ParseFormat converts a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "source-text", "source", "text", "js", "ts":
		return FormatSourceText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or source-text)", name)
	}
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatSourceText
}

// Document is the full text of a file plus the format it is declared in.
// Path is informational; source-text parsers use its extension.
type Document struct {
	Text   string
	Format Format
	Path   string
}

// NewDocument returns a document without a path.
func NewDocument(text string, format Format) Document {
	return Document{Text: text, Format: format}
}

func (d Document) withText(text string) Document {
	d.Text = text
	return d
}
