package research

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

// ParseDataURI decodes a document sent as data:<mime>[;base64],<payload>.
func ParseDataURI(filename, raw string) (DocumentInput, error) {
	invalid := func(reason string) error {
		return &ValidationError{
			Field:   "documents",
			Message: fmt.Sprintf("File %q is not a valid data URI: %s.", filename, reason),
		}
	}

	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return DocumentInput{}, invalid("missing data: prefix")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DocumentInput{}, invalid("missing payload separator")
	}

	isBase64 := false
	if trimmed, found := strings.CutSuffix(header, ";base64"); found {
		header = trimmed
		isBase64 = true
	}
	mediaType := "text/plain"
	if header != "" {
		parsed, _, err := mime.ParseMediaType(header)
		if err != nil {
			return DocumentInput{}, invalid("bad media type")
		}
		mediaType = parsed
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return DocumentInput{}, invalid("bad base64 payload")
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return DocumentInput{}, invalid("bad percent-encoding")
		}
		data = []byte(unescaped)
	}

	return DocumentInput{Filename: filename, MediaType: mediaType, Data: data}, nil
}
