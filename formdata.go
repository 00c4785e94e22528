package authclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/url"
)

// FormData is a multipart form payload. Use it as a request body when a
// call carries file uploads; plain struct/map bodies are sent as JSON.
type FormData struct {
	values url.Values
	files  []formFile
}

type formFile struct {
	field    string
	filename string
	content  io.Reader
}

func NewFormData() *FormData {
	return &FormData{values: url.Values{}}
}

// Set replaces the value for a field.
func (f *FormData) Set(field, value string) {
	f.values.Set(field, value)
}

// Add appends a value to a field.
func (f *FormData) Add(field, value string) {
	f.values.Add(field, value)
}

// Get returns the first value for a field.
func (f *FormData) Get(field string) string {
	return f.values.Get(field)
}

// AddFile attaches a file part.
func (f *FormData) AddFile(field, filename string, content io.Reader) {
	f.files = append(f.files, formFile{field: field, filename: filename, content: content})
}

// Encode renders the multipart body and its Content-Type. Encoding is
// single-shot: file readers are consumed.
func (f *FormData) Encode() (contentType string, body []byte, err error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for field, values := range f.values {
		for _, value := range values {
			if err := writer.WriteField(field, value); err != nil {
				return "", nil, err
			}
		}
	}

	for _, file := range f.files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			return "", nil, err
		}
		if _, err := io.Copy(part, file.content); err != nil {
			return "", nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return "", nil, err
	}

	return writer.FormDataContentType(), buf.Bytes(), nil
}
