package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	extractor := New()

	text, err := extractor.Extract("answer.txt", strings.NewReader("  The light-dependent reactions occur in the thylakoid.\n"))
	require.NoError(t, err)
	require.Equal(t, "The light-dependent reactions occur in the thylakoid.", text)
}

func TestExtractDocxParagraphs(t *testing.T) {
	extractor := New()

	archive := buildDocx(t, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := extractor.Extract("answer.docx", bytes.NewReader(archive))
	require.NoError(t, err)
	require.Contains(t, text, "First paragraph.")
	require.Contains(t, text, "Second paragraph.")
	require.Less(t, strings.Index(text, "First"), strings.Index(text, "Second"))
}

func TestExtractDocxEmptyBodyYieldsEmptyText(t *testing.T) {
	extractor := New()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte("<w:document></w:document>"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	text, err := extractor.Extract("empty.docx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestExtractPlainZipIsUnsupported(t *testing.T) {
	extractor := New()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("notes.txt")
	require.NoError(t, err)
	_, err = entry.Write([]byte("not a docx"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = extractor.Extract("archive.zip", bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	extractor := New()

	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	_, err := extractor.Extract("image.png", bytes.NewReader(png))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	require.Contains(t, err.Error(), "image/png")
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	types, err := writer.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = types.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	require.NoError(t, err)

	document, err := writer.Create("word/document.xml")
	require.NoError(t, err)
	_, err = document.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	return buf.Bytes()
}
