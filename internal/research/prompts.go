package research

import (
	"fmt"
	"strings"
)

const (
	maxDocumentPromptRunes = 10_000
	maxTotalDocumentRunes  = 30_000
	truncationMarker       = "\n[truncated]"
	noExtractableText      = "(no extractable text)"
)

const reportSystemPrompt = "You are a research assistant that analyzes documents and web sources to answer a research question. Return only JSON that follows the provided schema."

const refreshSystemPrompt = "You are an expert research assistant. You decide whether new information requires revising an existing answer. Return only JSON that follows the provided schema."

func buildReportMessages(question string, documents []ExtractedDocument, results []SearchResult) []Message {
	return []Message{
		{Role: "system", Content: reportSystemPrompt},
		{Role: "user", Content: buildReportPrompt(question, documents, results)},
	}
}

func buildReportPrompt(question string, documents []ExtractedDocument, results []SearchResult) string {
	var b strings.Builder
	b.WriteString("Research Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nDocuments:\n")

	budget := maxTotalDocumentRunes
	for i, doc := range documents {
		text := normalizeExtractedText(doc.Text)
		limit := min(maxDocumentPromptRunes, budget)
		trimmed := trimToRunes(text, limit)
		budget -= len([]rune(trimmed))
		fmt.Fprintf(&b, "[Document %d] Filename: %s\n", i+1, doc.Filename)
		if text == "" {
			b.WriteString(noExtractableText + "\n\n")
			continue
		}
		if trimmed == "" {
			b.WriteString("(no text available within the prompt budget)\n\n")
			continue
		}
		if trimmed != text {
			trimmed += truncationMarker
		}
		b.WriteString(trimmed)
		b.WriteString("\n\n")
	}

	b.WriteString("Web Search Results:\n")
	if len(results) == 0 {
		b.WriteString("No web search results.\n")
	}
	for i, result := range results {
		fmt.Fprintf(&b, "[Result %d] %s\nLink: %s\n", i+1, strings.TrimSpace(result.Title), strings.TrimSpace(result.Link))
		if snippet := strings.TrimSpace(result.Snippet); snippet != "" {
			b.WriteString("Snippet: ")
			b.WriteString(trimToRunes(snippet, 800))
			b.WriteString("\n")
		}
	}

	b.WriteString("\nInstructions:\n")
	b.WriteString("- Write a multi-paragraph summary that synthesizes the documents and the web results.\n")
	b.WriteString("- Extract the discrete key takeaways as a list of short statements.\n")
	b.WriteString("- List as sources every document filename and web result link you actually used, exactly as written above.\n")
	b.WriteString("- Do not cite anything that is not listed above.\n")
	return strings.TrimSpace(b.String())
}

func buildRefreshMessages(question, currentAnswer string, sourceURLs []string, newInformation string) []Message {
	return []Message{
		{Role: "system", Content: refreshSystemPrompt},
		{Role: "user", Content: buildRefreshPrompt(question, currentAnswer, sourceURLs, newInformation)},
	}
}

func buildRefreshPrompt(question, currentAnswer string, sourceURLs []string, newInformation string) string {
	var b strings.Builder
	b.WriteString("Research Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nCurrent Answer:\n")
	b.WriteString(strings.TrimSpace(currentAnswer))
	b.WriteString("\n\nSource URLs: ")
	if len(sourceURLs) == 0 {
		b.WriteString("No source URLs provided.")
	} else {
		b.WriteString(strings.Join(sourceURLs, ", "))
	}
	b.WriteString("\n\nNew Information:\n")
	b.WriteString(strings.TrimSpace(newInformation))
	b.WriteString("\n\nAssess whether the new information provides additional insights, corrections or clarifications that significantly improve the current answer.\n")
	b.WriteString("- If it does, set needsUpdate to true and write the complete revised answer in updatedAnswer.\n")
	b.WriteString("- If it is irrelevant or does not significantly change the answer, set needsUpdate to false and leave updatedAnswer empty.\n")
	return strings.TrimSpace(b.String())
}

func correctiveMessage(schemaName string, err error) string {
	return fmt.Sprintf("Your previous response did not match the %s schema: %v. Reply again with only a JSON object that satisfies the schema.", schemaName, err)
}
