package research

import (
	"net/url"
	"strings"
)

// ProvenanceAudit compares a report's sources with what the model was shown.
// It is informational; reports are never rewritten based on it.
type ProvenanceAudit struct {
	Matched    []string
	Unverified []string
}

func (a ProvenanceAudit) Clean() bool {
	return len(a.Unverified) == 0
}

func AuditProvenance(report Report, documents []ExtractedDocument, results []SearchResult) ProvenanceAudit {
	known := make(map[string]struct{}, len(documents)+len(results))
	for _, doc := range documents {
		known[provenanceKey(doc.Filename)] = struct{}{}
	}
	for _, result := range results {
		known[provenanceKey(result.Link)] = struct{}{}
	}

	var audit ProvenanceAudit
	for _, source := range report.Sources {
		if _, ok := known[provenanceKey(source)]; ok {
			audit.Matched = append(audit.Matched, source)
			continue
		}
		audit.Unverified = append(audit.Unverified, source)
	}
	return audit
}

func provenanceKey(raw string) string {
	value := strings.TrimSpace(raw)
	if !isHTTPURL(value) {
		return strings.ToLower(value)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return strings.ToLower(value)
	}
	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return parsed.String()
}
