package research

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExtractorReadsPagesInOrder(t *testing.T) {
	doc := DocumentInput{
		Filename:  "study.pdf",
		MediaType: "application/pdf",
		Data:      buildTestPDF("Microplastics in plankton", "Second page findings"),
	}

	text, err := NewPDFExtractor().Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, text, "Microplastics in plankton")
	assert.Contains(t, text, "Second page findings")
	assert.Less(t, strings.Index(text, "Microplastics"), strings.Index(text, "Second page"))
}

func TestPDFExtractorRejectsNonPDFMediaType(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), DocumentInput{
		Filename:  "notes.txt",
		MediaType: "text/plain",
		Data:      []byte("hello"),
	})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPDFExtractorAcceptsMediaTypeParameters(t *testing.T) {
	_, err := NewPDFExtractor().Extract(context.Background(), DocumentInput{
		MediaType: "Application/PDF; name=x.pdf",
		Data:      buildTestPDF("ok"),
	})
	assert.NoError(t, err)
}

func TestPDFExtractorCorruptBytes(t *testing.T) {
	cases := map[string][]byte{
		"not a pdf":      []byte("PK\x03\x04 zip archive"),
		"truncated":      []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog"),
		"bad xref table": []byte("%PDF-1.4\nstartxref\n999999\n%%EOF\n"),
		"empty":          nil,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPDFExtractor().Extract(context.Background(), DocumentInput{MediaType: MediaTypePDF, Data: data})
			assert.ErrorIs(t, err, ErrCorruptDocument)
		})
	}
}

func TestPDFExtractorPageWithoutTextIsNotAnError(t *testing.T) {
	text, err := NewPDFExtractor().Extract(context.Background(), DocumentInput{Filename: "scan.pdf", MediaType: MediaTypePDF, Data: buildTestPDF("")})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestPDFExtractorStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFExtractor().Extract(ctx, DocumentInput{MediaType: MediaTypePDF, Data: buildTestPDF("a", "b")})
	assert.ErrorIs(t, err, context.Canceled)
}
