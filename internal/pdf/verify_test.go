package pdfutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal PDF with the given number of empty pages and
// a correct cross-reference table.
func buildPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf.part")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestVerifyAcceptsPDF(t *testing.T) {
	path := writeFile(t, buildPDF(2))
	n, err := PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, Verify(path))
}

func TestVerifyRejectsEmptyDocument(t *testing.T) {
	assert.ErrorIs(t, Verify(writeFile(t, buildPDF(0))), ErrNoPages)
}

func TestVerifyRejectsNonPDF(t *testing.T) {
	for name, data := range map[string][]byte{
		"html":      []byte("<html><body>Sign in to view this document</body></html>"),
		"empty":     nil,
		"truncated": buildPDF(1)[:40],
	} {
		assert.Error(t, Verify(writeFile(t, data)), name)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	assert.Error(t, Verify(filepath.Join(t.TempDir(), "missing.pdf")))
}
