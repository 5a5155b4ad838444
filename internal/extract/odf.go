package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// OpenDocument packages keep their body in content.xml; presentations and
// spreadsheets differ only in which text elements carry content.
const odfContentPath = "content.xml"

var (
	odfTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// extractODP pulls text from presentation paragraphs, spans, and headings.
func extractODP(content []byte) (string, error) {
	return extractODF("ODP", content, odfTextP, odfTextSpan, odfTextH)
}

// extractODS pulls text from spreadsheet cell paragraphs and spans.
func extractODS(content []byte) (string, error) {
	return extractODF("ODS", content, odfTextP, odfTextSpan)
}

func extractODF(kind string, content []byte, tags ...*regexp.Regexp) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	body, err := zipPart(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: read %s: %w", kind, odfContentPath, err)
	}
	if body == nil {
		return "", fmt.Errorf("extract %s: %s not found", kind, odfContentPath)
	}
	s := string(body)
	var b strings.Builder
	for _, tag := range tags {
		for _, m := range tag.FindAllStringSubmatch(s, -1) {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(m[1]))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
