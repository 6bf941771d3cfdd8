package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/nabilhamdi/waraqa/internal/core"
)

func TestDocconvExtractor_PlainText(t *testing.T) {
	e := NewDocconvExtractor()

	tests := []struct {
		name string
		ext  string
		data []byte
	}{
		{"txt", ".txt", []byte("plain text body")},
		{"markdown", ".md", []byte("# heading\n\nbody")},
		{"uppercase extension", ".TXT", []byte("case insensitive")},
		{"arabic text", ".txt", []byte("نص عربي")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.data, tt.ext)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != string(tt.data) {
				t.Errorf("Extract() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestDocconvExtractor_InvalidUTF8(t *testing.T) {
	e := NewDocconvExtractor()
	_, err := e.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, ".txt")
	if !errors.Is(err, core.ErrReadFailure) {
		t.Errorf("Extract() error = %v, want ErrReadFailure", err)
	}
}

func TestDocconvExtractor_UnsupportedFormat(t *testing.T) {
	e := NewDocconvExtractor()
	for _, ext := range []string{".exe", ".png", "", ".pdfx"} {
		_, err := e.Extract(context.Background(), []byte("data"), ext)
		if !errors.Is(err, core.ErrUnsupportedFormat) {
			t.Errorf("Extract(ext=%q) error = %v, want ErrUnsupportedFormat", ext, err)
		}
	}
}
