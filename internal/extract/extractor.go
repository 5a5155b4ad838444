// Package extract provides text extraction from various document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileBytes bounds how large an uploaded document may be.
const MaxFileBytes = 50 << 20

// supported maps the extensions the ingestion pipeline accepts.
var supported = map[string]bool{
	".pdf": true, ".docx": true, ".odt": true, ".rtf": true,
	".xlsx": true, ".pptx": true, ".odp": true, ".ods": true,
	".txt": true, ".md": true, ".rst": true,
}

// Supported reports whether ext (with leading dot) is an accepted format.
func Supported(ext string) bool {
	return supported[strings.ToLower(ext)]
}

// FileType returns the normalized type label stored in the document registry,
// e.g. "pdf" for "report.PDF".
func FileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimPrefix(ext, ".")
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// For plain text files (.txt, .md, .rst), content is returned as-is (UTF-8 validated).
// For PDF, DOCX, ODT, RTF, Excel, PPTX, ODP, and ODS, text is extracted from
// the binary format.
// Returns an error if the file cannot be read, exceeds MaxFileBytes, or the
// format is unsupported.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxFileBytes {
		return "", fmt.Errorf("file too large: %d bytes (limit %d)", info.Size(), MaxFileBytes)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractODT(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odp":
		return extractODP(content)
	case ".ods":
		return extractODS(content)
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	default:
		// Unknown extension: treat as plain text
		return extractPlain(content)
	}
}
