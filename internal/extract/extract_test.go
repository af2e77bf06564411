package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_PlainTypes(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
	}{
		{"plain", "text/plain"},
		{"plain with charset", "text/plain; charset=utf-8"},
		{"csv", "text/csv"},
		{"markdown", "text/markdown"},
		{"unknown treated as text", "application/x-unknown"},
		{"empty mime type", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text([]byte("hello, world\n"), tt.mimeType)
			require.NoError(t, err)
			assert.Equal(t, "hello, world\n", got)
		})
	}
}

func TestText_UnicodeContent(t *testing.T) {
	got, err := Text([]byte("héllo 世界"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "héllo 世界", got)
}

func TestText_InvalidUTF8(t *testing.T) {
	_, err := Text([]byte{0xff, 0xfe, 0x00}, "text/plain")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestText_EmptyInput(t *testing.T) {
	got, err := Text(nil, "text/plain")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestText_MalformedPDF(t *testing.T) {
	_, err := Text([]byte("not a pdf at all"), "application/pdf")
	assert.Error(t, err)
}
