package conversion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pdf-rocket/internal/domain"
)

const maxFieldSize = 1 << 10

// readUploads streams the multipart body. A file over maxFileSize is drained without
// being kept, so the batch reports it as skipped and still converts the others.
// maxRetained bounds the bytes kept for the files within the limit.
func readUploads(r *http.Request, maxFileSize, maxRetained int64) (string, []domain.Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, err
	}

	var (
		quality  string
		uploads  []domain.Upload
		retained int64
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read part: %w", err)
		}

		switch name := part.FormName(); {
		case name == "quality" && part.FileName() == "":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
			if err != nil {
				return "", nil, fmt.Errorf("failed to read quality: %w", err)
			}
			quality = string(value)

		case (name == "files" || name == "file") && part.FileName() != "":
			upload, err := readFilePart(part.FileName(), part, maxFileSize)
			if err != nil {
				return "", nil, err
			}
			if upload.Size <= maxFileSize {
				retained += upload.Size
				if retained > maxRetained {
					return "", nil, ErrBatchTooLarge
				}
			}
			uploads = append(uploads, upload)
		}
		part.Close()
	}

	return quality, uploads, nil
}

func readFilePart(filename string, content io.Reader, maxFileSize int64) (domain.Upload, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(content, maxFileSize+1))
	if err != nil {
		return domain.Upload{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if n <= maxFileSize {
		return domain.Upload{Name: filename, Size: n, Content: &buf}, nil
	}

	rest, err := io.Copy(io.Discard, content)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return domain.Upload{Name: filename, Size: n + rest, Content: bytes.NewReader(nil)}, nil
}
