package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var errUnsupportedContentType = errors.New("unsupported content type")

// extractContent turns a fetched body into plain text according to its
// media type.
func extractContent(ctx context.Context, contentType string, body []byte, maxRunes int) (title, text string, err error) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, parseErr := mime.ParseMediaType(mediaType); parseErr == nil {
		mediaType = parsed
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		title, text, err = extractHTMLText(body)
	case "text/plain", "text/markdown", "text/csv":
		text = string(body)
	case "application/json":
		text, err = extractJSONText(body)
	case MediaTypePDF:
		text, err = extractPDFText(ctx, body, maxRunes)
	default:
		if strings.HasPrefix(mediaType, "text/") {
			text = string(body)
			break
		}
		return "", "", errUnsupportedContentType
	}
	if err != nil {
		return "", "", err
	}
	title = trimToRunes(strings.TrimSpace(title), 240)
	text = trimToRunes(normalizeExtractedText(text), maxRunes)
	return title, text, nil
}

func extractJSONText(data []byte) (string, error) {
	if !json.Valid(data) {
		return string(data), nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return "", err
	}
	return pretty.String(), nil
}

var htmlBlockSelectors = "p, li, h1, h2, h3, h4, h5, h6, blockquote, pre, td, th, figcaption"

func extractHTMLText(data []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, svg, iframe, nav, footer, header, form").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var lines []string
	root.Find(htmlBlockSelectors).Each(func(_ int, sel *goquery.Selection) {
		if sel.ParentsFiltered(htmlBlockSelectors).Length() > 0 {
			return
		}
		if line := strings.Join(strings.Fields(sel.Text()), " "); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return title, root.Text(), nil
	}
	return title, strings.Join(lines, "\n"), nil
}
