package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain passes text through unchanged, replacing invalid UTF-8
// sequences so the chunker never sees broken runes.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
