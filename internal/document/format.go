package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a document format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatWord     Format = "word"
	FormatCSV      Format = "csv"
	FormatExcel    Format = "excel"
	FormatHTML     Format = "html"
)

var extensions = map[string]Format{
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
	".text":     FormatText,
	".docx":     FormatWord,
	".csv":      FormatCSV,
	".xlsx":     FormatExcel,
	".html":     FormatHTML,
	".htm":      FormatHTML,
}

// Detect returns the format of path based on its extension (case-insensitive).
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extensions[ext]
	if !ok {
		if ext == "" {
			return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, filepath.Base(path))
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// IsTabular reports whether the format holds rows and cells.
func (f Format) IsTabular() bool {
	return f == FormatCSV || f == FormatExcel
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}
