package research

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAuditProvenance(t *testing.T) {
	documents := []ExtractedDocument{{Filename: "Marine-Study.pdf"}}
	results := []SearchResult{{Link: "https://Example.com/result1/"}}
	report := Report{Sources: []string{
		"marine-study.pdf",
		"https://example.com/result1",
		"https://example.com/result1#section-2",
		"https://made-up.example/paper",
		"Document 3",
	}}

	audit := AuditProvenance(report, documents, results)

	want := ProvenanceAudit{
		Matched:    []string{"marine-study.pdf", "https://example.com/result1", "https://example.com/result1#section-2"},
		Unverified: []string{"https://made-up.example/paper", "Document 3"},
	}
	if diff := cmp.Diff(want, audit); diff != "" {
		t.Fatalf("audit mismatch (-want +got):\n%s", diff)
	}
	if audit.Clean() {
		t.Fatal("expected audit with unverified sources to be unclean")
	}
}

func TestAuditProvenanceCleanReport(t *testing.T) {
	audit := AuditProvenance(Report{Sources: []string{"a.pdf"}}, []ExtractedDocument{{Filename: "a.pdf"}}, nil)
	if !audit.Clean() {
		t.Fatalf("expected clean audit, got %+v", audit)
	}
}
