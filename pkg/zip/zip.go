// Package zip assembles download archives by streaming entries straight
// into the response writer.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
)

// Archiver writes a zip archive incrementally.
type Archiver struct {
	zw *zip.Writer
}

// NewArchiver starts an archive on w.
func NewArchiver(w io.Writer) *Archiver {
	return &Archiver{zw: zip.NewWriter(w)}
}

// Add appends one file entry.
func (a *Archiver) Add(name string, data []byte) error {
	entry, err := a.zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip: create entry %q: %w", name, err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("zip: write entry %q: %w", name, err)
	}
	return nil
}

// Close finalizes the archive.
func (a *Archiver) Close() error {
	if err := a.zw.Close(); err != nil {
		return fmt.Errorf("zip: finalize archive: %w", err)
	}
	return nil
}
