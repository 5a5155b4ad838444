package extract

import (
	"archive/zip"
	"bytes"
)

// zipEntryBytes reads one archive entry fully into memory. Document bodies
// are small relative to their archives, so no streaming.
func zipEntryBytes(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// zipPart returns the named entry's bytes, or nil when the archive has no
// such entry.
func zipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return zipEntryBytes(f)
		}
	}
	return nil, nil
}
