package research

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []ModelRequest
}

func (m *scriptedModel) Generate(_ context.Context, req ModelRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("scripted model exhausted")
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ""
	}
	msgs := m.requests[len(m.requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

type stubExtractor struct {
	texts map[string]string
	errs  map[string]error
	// block makes extraction of the named file wait for cancellation.
	block    string
	canceled chan struct{}
}

func (s *stubExtractor) Extract(ctx context.Context, doc DocumentInput) (string, error) {
	if doc.Filename == s.block {
		<-ctx.Done()
		if s.canceled != nil {
			close(s.canceled)
		}
		return "", ctx.Err()
	}
	if err, ok := s.errs[doc.Filename]; ok {
		return "", err
	}
	if text, ok := s.texts[doc.Filename]; ok {
		return text, nil
	}
	return fmt.Sprintf("placeholder text for %s", doc.Filename), nil
}

type stubSearcher struct {
	results []SearchResult
	err     error
	queries []string
	mu      sync.Mutex
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubFetcher struct {
	content string
	err     error
}

func (s stubFetcher) Fetch(context.Context, string, []string) (string, error) {
	return s.content, s.err
}

func mockSearchResults(query string) []SearchResult {
	return []SearchResult{
		{Title: "Mock Search Result 1", Link: "https://example.com/result1", Snippet: "This is a mock search result snippet for the query: " + query},
		{Title: "Mock Search Result 2", Link: "https://example.com/result2", Snippet: "Another mock result to show how web search integrates with the research."},
	}
}

func pdfDocument(name string) DocumentInput {
	return DocumentInput{Filename: name, MediaType: MediaTypePDF, Data: buildTestPDF("Placeholder")}
}

// buildTestPDF writes a minimal PDF with one page per entry, each showing the
// entry as a single line of Helvetica text.
func buildTestPDF(pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int
	write := func(format string, args ...any) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, format, args...)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	write("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	write("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), len(pages))
	write("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")
	for i, text := range pages {
		pageID := 4 + 2*i
		stream := "q Q"
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		write("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>\nendobj\n", pageID, pageID+1)
		write("%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", pageID+1, len(stream), stream)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
