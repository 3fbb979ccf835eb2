package research

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"mime"
	"strings"

	"github.com/rs/zerolog/log"
	"rsc.io/pdf"
)

const maxPDFTextRunes = 220_000

var pdfMagic = []byte("%PDF-")

// PDFExtractor pulls plain text out of PDF documents.
type PDFExtractor struct {
	MaxRunes int
}

func NewPDFExtractor() PDFExtractor {
	return PDFExtractor{MaxRunes: maxPDFTextRunes}
}

func (e PDFExtractor) Extract(ctx context.Context, doc DocumentInput) (string, error) {
	if !isPDFMediaType(doc.MediaType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.MediaType)
	}
	text, err := extractPDFText(ctx, doc.Data, e.MaxRunes)
	if err != nil {
		return "", err
	}
	if text == "" {
		// Scanned PDFs have no text layer; the report still cites them by name.
		log.Debug().Str("filename", doc.Filename).Msg("pdf has no extractable text")
	}
	return text, nil
}

func isPDFMediaType(raw string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(raw))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	return mediaType == MediaTypePDF
}

// extractPDFText walks every page in order. rsc.io/pdf panics on some
// malformed inputs, so panics are reported as ErrCorruptDocument.
func extractPDFText(ctx context.Context, data []byte, maxRunes int) (text string, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\n\r "), pdfMagic) {
		return "", fmt.Errorf("%w: missing pdf header", ErrCorruptDocument)
	}
	if maxRunes <= 0 {
		maxRunes = maxPDFTextRunes
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrCorruptDocument, recovered)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	var b strings.Builder
	runeCount := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText := pageContentText(page.Content().Text)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
		runeCount += len([]rune(pageText))
		if runeCount >= maxRunes {
			break
		}
	}

	return trimToRunes(normalizeExtractedText(b.String()), maxRunes), nil
}

// pageContentText joins glyph runs into lines, breaking when the baseline
// moves and inserting spaces across horizontal gaps.
func pageContentText(items []pdf.Text) string {
	var b strings.Builder
	var prev *pdf.Text
	for i := range items {
		item := &items[i]
		if item.S == "" {
			continue
		}
		if prev != nil {
			switch {
			case math.Abs(item.Y-prev.Y) > math.Max(prev.FontSize*0.5, 1):
				b.WriteByte('\n')
			case item.X-(prev.X+prev.W) > math.Max(prev.FontSize*0.15, 0.5):
				b.WriteByte(' ')
			}
		}
		b.WriteString(item.S)
		prev = item
	}
	return strings.TrimSpace(b.String())
}
