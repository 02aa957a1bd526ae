package flows

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"sort"
)

// ErrNilUpload is returned when an upload carries no content reader.
var ErrNilUpload = errors.New("upload reader is nil")

// UploadPart is the flow-local upload description.
type UploadPart struct {
	FieldName string
	FileName  string
	Reader    io.Reader
	Fields    map[string]string
}

// EncodeMultipart renders part as multipart/form-data and returns the body with its
// boundary-carrying content type. Extra fields are written before the file, in key order.
func EncodeMultipart(part UploadPart) ([]byte, string, error) {
	if part.Reader == nil {
		return nil, "", ErrNilUpload
	}
	field := part.FieldName
	if field == "" {
		field = "file"
	}
	name := part.FileName
	if name == "" {
		name = "upload"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(part.Fields))
	for k := range part.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, part.Fields[k]); err != nil {
			return nil, "", err
		}
	}

	fw, err := w.CreateFormFile(field, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, part.Reader); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
