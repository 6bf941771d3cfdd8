package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/nabilhamdi/waraqa/internal/core"
)

var _ core.TextExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.TextExtractor using sajari/docconv for
// binary formats and a plain UTF-8 read for text formats.
type DocconvExtractor struct{}

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

// Extract dispatches strictly by lower-cased extension. It has no side
// effects beyond reading the supplied bytes.
func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return e.convert(ctx, data, "application/pdf")
	case ".docx":
		return e.convert(ctx, data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	case ".doc":
		return e.convert(ctx, data, "application/msword")
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: not valid UTF-8 text", core.ErrReadFailure)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}
}

func (e *DocconvExtractor) convert(ctx context.Context, data []byte, mimeType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrReadFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Body, nil
}
