package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"insight/backend/internal/research"
)

const (
	multipartMemoryBytes   = 8 << 20
	formOverheadBytes      = 1 << 20
	maxRefreshRequestBytes = 1 << 20
)

var errRequestTooLarge = &research.ValidationError{
	Field:    "files",
	Message:  "The upload exceeds the total request size limit.",
	TooLarge: true,
}

type jsonReportRequest struct {
	Question  string             `json:"question"`
	Documents []jsonDocumentBody `json:"documents"`
}

type jsonDocumentBody struct {
	Filename string `json:"filename"`
	DataURI  string `json:"dataUri"`
}

// readReportRequest decodes either form of the report request. The returned
// cleanup must always be called.
func (h Handler) readReportRequest(w http.ResponseWriter, r *http.Request) (string, []research.DocumentInput, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes())

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		question, documents, err := readJSONReport(r)
		return question, documents, noop, err
	}

	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		if isMaxBytesError(err) {
			return "", nil, noop, errRequestTooLarge
		}
		return "", nil, noop, &research.ValidationError{Field: "body", Message: "request must be multipart/form-data"}
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	question := r.FormValue("question")
	headers := r.MultipartForm.File["files"]
	documents := make([]research.DocumentInput, 0, len(headers))
	for _, header := range headers {
		doc, err := h.readUpload(header)
		if err != nil {
			return "", nil, cleanup, err
		}
		documents = append(documents, doc)
	}
	return question, documents, cleanup, nil
}

func (h Handler) readUpload(header *multipart.FileHeader) (research.DocumentInput, error) {
	filename := uploadFilename(header.Filename)
	file, err := header.Open()
	if err != nil {
		return research.DocumentInput{}, fmt.Errorf("open upload %s: %w", filename, err)
	}
	defer file.Close()

	// One byte past the limit is enough for size validation to reject it.
	data, err := io.ReadAll(io.LimitReader(file, h.maxDocumentBytes()+1))
	if err != nil {
		return research.DocumentInput{}, fmt.Errorf("read upload %s: %w", filename, err)
	}

	return research.DocumentInput{
		Filename:  filename,
		MediaType: detectUploadMediaType(header.Header.Get("Content-Type"), strings.ToLower(filepath.Ext(filename)), data),
		Data:      data,
	}, nil
}

func readJSONReport(r *http.Request) (string, []research.DocumentInput, error) {
	var req jsonReportRequest
	if err := decodeJSON(r, &req); err != nil {
		if isMaxBytesError(err) {
			return "", nil, errRequestTooLarge
		}
		return "", nil, &research.ValidationError{Field: "body", Message: "request body must be a JSON object with question and documents"}
	}

	documents := make([]research.DocumentInput, 0, len(req.Documents))
	for i, body := range req.Documents {
		filename := uploadFilename(body.Filename)
		if strings.TrimSpace(body.Filename) == "" {
			filename = fmt.Sprintf("document-%d", i+1)
		}
		doc, err := research.ParseDataURI(filename, body.DataURI)
		if err != nil {
			return "", nil, err
		}
		documents = append(documents, doc)
	}
	return req.Question, documents, nil
}

func (h Handler) maxDocumentBytes() int64 {
	if h.limits.MaxDocumentBytes <= 0 {
		return research.DefaultLimits().MaxDocumentBytes
	}
	return h.limits.MaxDocumentBytes
}

func (h Handler) maxRequestBytes() int64 {
	perFile := h.maxDocumentBytes()
	count := h.limits.MaxDocuments
	if count <= 0 {
		count = research.DefaultLimits().MaxDocuments
	}
	// Data URIs inflate payloads by a third.
	return (perFile*int64(count))*4/3 + formOverheadBytes
}

func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// uploadFilename keeps the client's base name so it can be cited verbatim.
func uploadFilename(raw string) string {
	base := strings.TrimSpace(filepath.Base(strings.ReplaceAll(raw, "\\", "/")))
	if base == "" || base == "." || base == "/" {
		return "file"
	}
	return base
}

func detectUploadMediaType(headerContentType, extension string, data []byte) string {
	contentType := strings.TrimSpace(headerContentType)
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	if byExt := strings.TrimSpace(mime.TypeByExtension(extension)); byExt != "" {
		return byExt
	}

	if len(data) > 0 {
		return http.DetectContentType(data[:min(len(data), 512)])
	}
	return "application/octet-stream"
}
