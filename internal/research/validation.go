package research

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	msgQuestionTooShort = "Please provide a more detailed research question."
	msgNoDocuments      = "Please upload at least one document."
	msgAnswerRequired   = "Please provide the current answer to refresh."
)

// Limits are the boundary rules applied before a request reaches the pipeline.
type Limits struct {
	MinQuestionChars int
	MaxDocuments     int
	MaxDocumentBytes int64
}

func DefaultLimits() Limits {
	return Limits{
		MinQuestionChars: 10,
		MaxDocuments:     10,
		MaxDocumentBytes: 20 * 1024 * 1024,
	}
}

func (l Limits) ValidateQuestion(question string) error {
	if utf8.RuneCountInString(strings.TrimSpace(question)) < l.MinQuestionChars {
		return &ValidationError{Field: "question", Message: msgQuestionTooShort}
	}
	return nil
}

// ValidateDocuments checks the document count, then each document's size and
// declared media type in submission order. The first violation wins.
func (l Limits) ValidateDocuments(documents []DocumentInput) error {
	if len(documents) == 0 {
		return &ValidationError{Field: "files", Message: msgNoDocuments}
	}
	if l.MaxDocuments > 0 && len(documents) > l.MaxDocuments {
		return &ValidationError{
			Field:   "files",
			Message: fmt.Sprintf("Please upload at most %d documents.", l.MaxDocuments),
		}
	}
	for _, doc := range documents {
		if err := l.ValidateDocumentSize(doc.Filename, int64(len(doc.Data))); err != nil {
			return err
		}
		if !isPDFMediaType(doc.MediaType) {
			return UnsupportedTypeError(doc.Filename)
		}
	}
	return nil
}

func (l Limits) ValidateDocumentSize(filename string, size int64) error {
	if l.MaxDocumentBytes > 0 && size > l.MaxDocumentBytes {
		return &ValidationError{
			Field:    "files",
			Message:  fmt.Sprintf("File %q exceeds the %dMB size limit.", filename, l.MaxDocumentBytes/(1024*1024)),
			TooLarge: true,
		}
	}
	return nil
}

func UnsupportedTypeError(filename string) error {
	return &ValidationError{
		Field:   "files",
		Message: fmt.Sprintf("File %q is not a supported type. Please upload PDFs.", filename),
		Err:     ErrUnsupportedFormat,
	}
}

func (l Limits) ValidateRefresh(question, currentAnswer string) error {
	if strings.TrimSpace(question) == "" {
		return &ValidationError{Field: "question", Message: msgQuestionTooShort}
	}
	if strings.TrimSpace(currentAnswer) == "" {
		return &ValidationError{Field: "currentAnswer", Message: msgAnswerRequired}
	}
	return nil
}
