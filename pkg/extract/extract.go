// Package extract converts uploaded submission files into plain text for
// grading. Only a fixed allow-list of formats is accepted: plain text, DOCX,
// and PDF.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat indicates the file type is outside the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported file format")

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Extractor turns an uploaded file into plain text.
type Extractor interface {
	Extract(name string, r io.Reader) (string, error)
}

// FileExtractor is the default Extractor, detecting the format by content.
type FileExtractor struct{}

// New constructs a FileExtractor.
func New() *FileExtractor {
	return &FileExtractor{}
}

// Extract reads the whole file, detects its type, and returns the extracted
// plain text.
func (e *FileExtractor) Extract(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	mime := mimetype.Detect(data)
	switch {
	case mime.Is("text/plain"):
		return strings.TrimSpace(string(data)), nil
	case mime.Is(docxMIME) || (mime.Is("application/zip") && looksLikeDocx(data)):
		return extractDocx(data)
	case mime.Is("application/pdf"):
		return extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime.String())
	}
}

func looksLikeDocx(data []byte) bool {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			return true
		}
	}
	return false
}

// extractDocx pulls the character data out of word/document.xml, inserting a
// newline at each paragraph end.
func extractDocx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var document *zip.File
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("%w: docx missing document body", ErrUnsupportedFormat)
	}

	body, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("open docx body: %w", err)
	}
	defer body.Close()

	decoder := xml.NewDecoder(body)
	var b strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("decode docx body: %w", err)
		}

		switch t := token.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var b strings.Builder
	if _, err := io.Copy(&b, content); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return strings.TrimSpace(b.String()), nil
}
