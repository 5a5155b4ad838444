// Package fileid derives stable document IDs for files ingested from watched
// directories.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// DocID returns a stable document ID for a corpus/path pair. The same file
// dropped into the same corpus always yields the same ID, so repeated
// ingestion overwrites instead of duplicating.
func DocID(corpus, absolutePath string) string {
	normalized := corpus + "\x00" + filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:16])
}
