package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

var pdfMagic = []byte("%PDF-")

// ValidatePDFHeader checks that the file starts with the PDF magic bytes.
// Anything else, including a file too short to hold them, is an error.
func ValidatePDFHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("file too small to be a valid pdf: %w", err)
	}
	if !bytes.Equal(header, pdfMagic) {
		return fmt.Errorf("invalid pdf header in %s", path)
	}
	return nil
}
