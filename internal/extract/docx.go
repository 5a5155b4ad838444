package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	// Conventional body location inside a .docx package; the manifest in
	// [Content_Types].xml can point elsewhere.
	docxBodyPath     = "word/document.xml"
	contentTypesPath = "[Content_Types].xml"
	docxBodyType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wtTag matches <w:t> text runs regardless of attributes such as xml:space.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// Override entries list PartName and ContentType in either order.
var (
	docxPartFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxBodyType) + `"`)
	docxTypeFirst = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxBodyType) + `"[^>]+PartName="([^"]+)"`)
)

// docxBodyLocation resolves the main document part from the manifest,
// falling back to the conventional path when the manifest is absent or
// names none.
func docxBodyLocation(zr *zip.Reader) string {
	manifest, err := zipPart(zr, contentTypesPath)
	if err != nil || manifest == nil {
		return docxBodyPath
	}
	s := string(manifest)
	if m := docxPartFirst.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := docxTypeFirst.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return docxBodyPath
}

// extractDOCX collects every <w:t> text run from the document body.
// Run-level matching keeps content reachable whatever paragraph attributes
// are present; lu4p/cat's docx path matches bare <w:p> tags only and loses
// attributed paragraphs, which is why this package routes only odt/rtf
// through it.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	path := docxBodyLocation(zr)
	body, err := zipPart(zr, path)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", path, err)
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", path)
	}

	runs := wtTag.FindAllStringSubmatch(string(body), -1)
	var b strings.Builder
	for _, r := range runs {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(r[1]))
	}
	return strings.TrimSpace(b.String()), nil
}
