package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractODT extracts text from OpenDocument Text and RTF bytes. Both formats
// are handled by lu4p/cat, which sniffs the type from the content itself.
// DOCX stays on the in-house extractor (see docx.go).
func extractODT(content []byte) (string, error) {
	txt, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract ODT/RTF: %w", err)
	}
	return txt, nil
}
