// Package pdfutil checks downloaded PDFs before they are kept.
package pdfutil

import (
	"errors"
	"fmt"

	pdf "github.com/ledongthuc/pdf"
)

// ErrNoPages is returned for a document that parses but has no pages.
var ErrNoPages = errors.New("pdf has no pages")

// PageCount opens the PDF at path with ledongthuc/pdf and returns its page
// count. Malformed files are reported as errors, never as panics.
func PageCount(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	f, doc, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return doc.NumPage(), nil
}

// Verify fails unless path is a readable PDF with at least one page.
func Verify(path string) error {
	n, err := PageCount(path)
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrNoPages
	}
	return nil
}
