package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insight/backend/internal/research"
)

func TestWriteOutputYAMLUsesCamelCaseKeys(t *testing.T) {
	var buf bytes.Buffer
	err := writeOutput(&buf, "yaml", reportOutput{
		ID:           "r1",
		Question:     "q",
		KeyTakeaways: []string{"one"},
		Summary:      "s",
		Sources:      []string{"a.pdf"},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "keyTakeaways:\n  - one")
	assert.Contains(t, out, "sources:\n  - a.pdf")
}

func TestWriteOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, "json", map[string]bool{"isUpdated": true}))
	assert.JSONEq(t, `{"isUpdated":true}`, buf.String())
}

func TestCheckOutputFormat(t *testing.T) {
	assert.NoError(t, checkOutputFormat("json"))
	assert.NoError(t, checkOutputFormat("yaml"))
	assert.Error(t, checkOutputFormat("xml"))
}

func TestLoadDocumentsDetectsMediaType(t *testing.T) {
	dir := t.TempDir()
	pdfPath := filepath.Join(dir, "paper.pdf")
	txtPath := filepath.Join(dir, "notes")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4\n"), 0o644))
	require.NoError(t, os.WriteFile(txtPath, []byte("plain notes"), 0o644))

	docs, err := loadDocuments([]string{pdfPath, txtPath})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "paper.pdf", docs[0].Filename)
	assert.Equal(t, research.MediaTypePDF, docs[0].MediaType)
	assert.True(t, strings.HasPrefix(docs[1].MediaType, "text/plain"))

	err = research.DefaultLimits().ValidateDocuments(docs)
	var validationErr *research.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ErrorIs(t, err, research.ErrUnsupportedFormat)
}

func TestLoadDocumentsMissingFile(t *testing.T) {
	_, err := loadDocuments([]string{filepath.Join(t.TempDir(), "missing.pdf")})
	require.Error(t, err)
}
