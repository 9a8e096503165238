package document

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoader_ProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_application.txt", []byte("Name: John Doe\nPhone: 555-1234"))
	writeFile(t, dir, "a_latin1.TXT", []byte{'J', 'o', 's', 0xe9})
	writeFile(t, dir, "c_form.docx", docxBytes(t,
		`<w:p><w:r><w:t>First name:</w:t></w:r><w:r><w:tab/><w:t>Ann</w:t></w:r></w:p><w:p><w:r><w:t>Last name: Lee</w:t></w:r></w:p>`))
	writeFile(t, dir, "d_page.html", []byte(`<html><head><title>x</title><style>p{}</style></head><body>
<p>Email: ann@example.com</p>
<table><tr><th>Item</th><th>Qty</th></tr><tr><td>Bolt</td><td>4</td></tr></table>
<script>alert(1)</script></body></html>`))
	writeFile(t, dir, "e_legacy.doc", []byte("\xd0\xcf\x11\xe0 not a zip"))
	writeFile(t, dir, "f_image.png", []byte{0x89, 'P', 'N', 'G'})
	writeFile(t, dir, "g_blank.txt", []byte(" \n\t\n"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o700))

	scan, err := NewLoader(nil).ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, scan.Documents, 4)
	names := make([]string, len(scan.Documents))
	for i, d := range scan.Documents {
		names[i] = d.Filename
	}
	assert.Equal(t, []string{"a_latin1.TXT", "b_application.txt", "c_form.docx", "d_page.html"}, names)

	assert.Equal(t, "José", scan.Documents[0].Text)
	assert.Equal(t, int64(4), scan.Documents[0].Size)
	assert.Equal(t, "Name: John Doe\nPhone: 555-1234", scan.Documents[1].Text)
	assert.Equal(t, "First name:\tAnn\nLast name: Lee", scan.Documents[2].Text)

	html := scan.Documents[3].Text
	assert.Contains(t, html, "Email: ann@example.com")
	assert.Contains(t, html, "Item | Qty")
	assert.Contains(t, html, "Bolt | 4")
	assert.NotContains(t, html, "alert")
	assert.NotContains(t, html, "p{}")

	require.Len(t, scan.Failures, 2)
	assert.Equal(t, "e_legacy.doc", scan.Failures[0].Filename)
	assert.ErrorIs(t, scan.Failures[0].Err, common.ErrUnsupportedFormat)
	assert.Equal(t, "g_blank.txt", scan.Failures[1].Filename)
	assert.ErrorIs(t, scan.Failures[1].Err, common.ErrEmptyDocument)

	assert.Equal(t, []string{"f_image.png"}, scan.Skipped)
}

func TestLoader_Errors(t *testing.T) {
	loader := NewLoader(nil)
	dir := t.TempDir()

	_, err := loader.ProcessDirectory(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	writeFile(t, dir, "plain.txt", []byte("x"))
	_, err = loader.ProcessDirectory(context.Background(), filepath.Join(dir, "plain.txt"))
	assert.Error(t, err)

	_, err = loader.ReadDocument(context.Background(), filepath.Join(dir, "sheet.xls"))
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = loader.ReadDocument(context.Background(), filepath.Join(dir, "gone.txt"))
	assert.ErrorIs(t, err, common.ErrNotFound)

	writeFile(t, dir, "broken.pdf", []byte("%PDF-1.4 truncated"))
	_, err = loader.ReadDocument(context.Background(), filepath.Join(dir, "broken.pdf"))
	assert.Error(t, err)
}

// pdfBytes builds a one-page PDF showing text, with a correct xref table.
func pdfBytes(text string) []byte {
	stream := "BT /F1 12 Tf 72 720 Td (" + text + ") Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestLoader_CorruptPDFDoesNotAbortScan(t *testing.T) {
	tests := []struct {
		corrupt func([]byte) []byte
		name    string
	}{
		{
			name: "object header replaced",
			corrupt: func(b []byte) []byte {
				b[9] = '('
				return b
			},
		},
		{
			name:    "truncated body",
			corrupt: func(b []byte) []byte { return b[:len(b)/2] },
		},
		{
			name: "xref offset points past the end",
			corrupt: func(b []byte) []byte {
				return bytes.Replace(b, []byte("startxref\n"), []byte("startxref\n9"), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "a_bad.pdf", tt.corrupt(pdfBytes("Hello World")))
			writeFile(t, dir, "b_good.txt", []byte("Name: John Doe"))

			scan, err := NewLoader(nil).ProcessDirectory(context.Background(), dir)
			require.NoError(t, err)

			require.Len(t, scan.Documents, 1)
			assert.Equal(t, "b_good.txt", scan.Documents[0].Filename)
			require.Len(t, scan.Failures, 1)
			assert.Equal(t, "a_bad.pdf", scan.Failures[0].Filename)
			assert.Error(t, scan.Failures[0].Err)
		})
	}
}

func TestRecoverMalformed(t *testing.T) {
	decode := func() (_ string, err error) {
		defer recoverMalformed("PDF", &err)
		panic("malformed PDF: reading at offset 587: EOF")
	}

	text, err := decode()
	assert.Empty(t, text)
	require.ErrorIs(t, err, common.ErrMalformedDocument)
	assert.Contains(t, err.Error(), "offset 587")
}

func TestLoader_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scan, err := NewLoader(nil).ProcessDirectory(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, scan.Documents)
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.txt", "a.PDF", "a.docx", "a.doc", "a.html", "a.htm"} {
		assert.True(t, Supported(name), name)
	}
	for _, name := range []string{"a.png", "a", "a.txt.bak"} {
		assert.False(t, Supported(name), name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantValid bool
		wantScore float64
	}{
		{name: "empty", text: "", wantScore: 0},
		{name: "too short", text: "Name: John Doe", wantScore: 0.1},
		{name: "encoded blob", text: strings.Repeat("A", 600) + " b c d e f g h i j", wantScore: 0.3},
		{
			name:      "ten words on one line",
			text:      "one two three four five six seven eight nine ten",
			wantValid: true,
			wantScore: 10.0/100*0.5 + 1.0/20*0.3 + 0.2,
		},
		{
			name:      "long document caps at one",
			text:      strings.Repeat("word ", 300) + strings.Repeat("\n", 40),
			wantValid: true,
			wantScore: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Validate(tt.text)
			assert.Equal(t, tt.wantValid, q.Valid)
			assert.InDelta(t, tt.wantScore, q.Score, 1e-9)
			assert.NotEmpty(t, q.Reason)
		})
	}
}
