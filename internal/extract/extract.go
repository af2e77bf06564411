// Package extract turns uploaded file bytes into plain text for chunking.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrNoText indicates the file was readable but contained no
	// extractable text.
	ErrNoText = errors.New("no text extracted")

	// ErrInvalidEncoding indicates a text file that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("content is not valid UTF-8")
)

// Text extracts plain text from data according to mimeType. PDF files go
// through a real parser; everything else is treated as UTF-8 text, which
// covers text/plain, text/csv, text/markdown and the common case of an
// unknown or missing content type.
func Text(data []byte, mimeType string) (string, error) {
	mediaType := mimeType
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mediaType = parsed
	}

	switch strings.ToLower(mediaType) {
	case "application/pdf":
		return pdfText(data)
	default:
		return plainText(data)
	}
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}
	return string(data), nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parsing pdf: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("%w: pdf has no text layer", ErrNoText)
	}
	return buf.String(), nil
}
