package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const multipartMemory = 8 << 20

type uploadedFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// parseMultipart splits a multipart form into JSON field values and files.
// A "data" part holding a JSON object is merged first; plain values become
// JSON strings, and names ending in "[]" become string arrays.
func parseMultipart(r *http.Request) (map[string]json.RawMessage, map[string]uploadedFile, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	form := r.MultipartForm

	fields := make(map[string]json.RawMessage)
	if raw := form.Value["data"]; len(raw) > 0 && strings.TrimSpace(raw[0]) != "" {
		if err := json.Unmarshal([]byte(raw[0]), &fields); err != nil {
			return nil, nil, err
		}
	}
	for name, values := range form.Value {
		if name == "data" || len(values) == 0 {
			continue
		}
		var (
			encoded []byte
			err     error
		)
		if strings.HasSuffix(name, "[]") {
			name = strings.TrimSuffix(name, "[]")
			encoded, err = json.Marshal(values)
		} else {
			encoded, err = json.Marshal(values[0])
		}
		if err != nil {
			return nil, nil, err
		}
		fields[name] = encoded
	}

	files := make(map[string]uploadedFile, len(form.File))
	for name, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		f, err := readPart(headers[0])
		if err != nil {
			return nil, nil, err
		}
		files[name] = f
	}
	return fields, files, nil
}

func readPart(fh *multipart.FileHeader) (uploadedFile, error) {
	file, err := fh.Open()
	if err != nil {
		return uploadedFile{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return uploadedFile{}, err
	}
	return uploadedFile{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
