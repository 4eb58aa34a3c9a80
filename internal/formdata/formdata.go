// Package formdata encodes ordered text and file fields as a
// multipart/form-data body.
//
// The framing is written by hand because mime/multipart sorts part headers
// alphabetically, and the backend expects Content-Type before
// Content-Transfer-Encoding.
package formdata

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	bytefmt "github.com/labstack/gommon/bytes"
	"github.com/spf13/afero"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

const crlf = "\r\n"

// Part is one form field. TextField and FileField are the only implementations.
type Part interface {
	FieldName() string
	header() string
	content() io.Reader
	size() int64
}

// TextField is a UTF-8 text value.
type TextField struct {
	Name  string
	Value string
}

// FieldName returns the form field name.
func (f TextField) FieldName() string { return f.Name }

func (f TextField) header() string {
	return "Content-Disposition: form-data; name=\"" + escapeQuotes(f.Name) + "\"" + crlf
}

func (f TextField) content() io.Reader { return strings.NewReader(f.Value) }
func (f TextField) size() int64        { return int64(len(f.Value)) }

// FileField is a file upload. Size may be -1 when unknown, in which case the
// encoded body has no known length.
type FileField struct {
	Name        string
	Filename    string
	ContentType string
	Content     io.Reader
	Size        int64

	// payload is set for in-memory content so boundary collisions can be checked
	payload []byte
}

// FieldName returns the form field name.
func (f FileField) FieldName() string { return f.Name }

func (f FileField) header() string {
	contentType := f.ContentType
	if contentType == "" {
		contentType = InferContentType(f.Filename)
	}
	return "Content-Disposition: form-data; name=\"" + escapeQuotes(f.Name) +
		"\"; filename=\"" + escapeQuotes(f.Filename) + "\"" + crlf +
		"Content-Type: " + contentType + crlf +
		"Content-Transfer-Encoding: binary" + crlf
}

func (f FileField) content() io.Reader { return f.Content }
func (f FileField) size() int64        { return f.Size }

// FileFromBytes builds a file field from an in-memory payload.
func FileFromBytes(name, filename string, data []byte) FileField {
	return FileField{
		Name:        name,
		Filename:    filename,
		ContentType: InferContentType(filename),
		Content:     bytes.NewReader(data),
		Size:        int64(len(data)),
		payload:     data,
	}
}

// FileFromPath opens path on fsys and builds a file field streaming its
// content. The returned closer must be called once the body is sent.
func FileFromPath(fsys afero.Fs, name, path string) (FileField, io.Closer, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return FileField{}, nil, errors.New(err).
			Component("formdata").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("field", name).
			Build()
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return FileField{}, nil, errors.New(err).
			Component("formdata").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}

	return FileField{
		Name:        name,
		Filename:    filepath.Base(path),
		ContentType: InferContentType(path),
		Content:     file,
		Size:        info.Size(),
	}, file, nil
}

// InferContentType maps a filename extension to a MIME type, ignoring case.
func InferContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// Body is an encoded multipart body. It is read once.
type Body struct {
	boundary string
	reader   io.Reader
	length   int64
	parts    int
}

// Read streams the encoded body.
func (b *Body) Read(p []byte) (int, error) { return b.reader.Read(p) }

// Boundary returns the boundary token without leading dashes.
func (b *Body) Boundary() string { return b.boundary }

// ContentType returns the Content-Type header value for the body.
func (b *Body) ContentType() string { return "multipart/form-data; boundary=" + b.boundary }

// Size returns the encoded length, or -1 when a part has unknown size.
func (b *Body) Size() int64 { return b.length }

// Parts returns the number of encoded parts.
func (b *Body) Parts() int { return b.parts }

// Encode frames parts with a fresh boundary. In-memory file payloads that
// happen to contain the boundary trigger a new one.
func Encode(parts ...Part) (*Body, error) {
	const maxAttempts = 3
	var lastErr error
	for range maxAttempts {
		body, err := EncodeWithBoundary(NewBoundary(), parts...)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ErrBoundaryCollision) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// ErrBoundaryCollision is returned when a payload contains the boundary.
var ErrBoundaryCollision = errors.NewStd("boundary occurs in payload")

// EncodeWithBoundary frames parts with the given boundary. Identical parts
// and boundary produce identical bytes.
func EncodeWithBoundary(boundary string, parts ...Part) (*Body, error) {
	if err := ValidateBoundary(boundary); err != nil {
		return nil, err
	}

	delimiter := "--" + boundary
	readers := make([]io.Reader, 0, len(parts)*2+1)
	length := int64(0)

	for i, part := range parts {
		if err := validatePart(part); err != nil {
			return nil, errors.New(err).
				Component("formdata").
				Category(errors.CategoryValidation).
				Context("part_index", i).
				Build()
		}

		if ff, ok := part.(FileField); ok && ff.payload != nil && bytes.Contains(ff.payload, []byte(delimiter)) {
			return nil, errors.New(ErrBoundaryCollision).
				Component("formdata").
				Category(errors.CategoryValidation).
				Context("field", ff.Name).
				Build()
		}

		head := delimiter + crlf + part.header() + crlf
		readers = append(readers, strings.NewReader(head), part.content(), strings.NewReader(crlf))

		switch {
		case length < 0:
		case part.size() < 0:
			length = -1
		default:
			length += int64(len(head)) + part.size() + int64(len(crlf))
		}
	}

	closing := delimiter + "--" + crlf
	readers = append(readers, strings.NewReader(closing))
	if length >= 0 {
		length += int64(len(closing))
	}

	body := &Body{
		boundary: boundary,
		reader:   io.MultiReader(readers...),
		length:   length,
		parts:    len(parts),
	}

	if length >= 0 {
		getLogger().Debug("multipart body encoded",
			logger.Int("parts", len(parts)),
			logger.String("size", bytefmt.Format(length)))
	}

	return body, nil
}

func validatePart(part Part) error {
	if part == nil {
		return fmt.Errorf("nil part")
	}
	name := part.FieldName()
	if name == "" {
		return fmt.Errorf("field name is required")
	}
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("field name %q contains a line break", name)
	}
	if ff, ok := part.(FileField); ok {
		if ff.Content == nil {
			return fmt.Errorf("file field %q has no content", name)
		}
		if ff.Filename == "" || strings.ContainsAny(ff.Filename, "\r\n") {
			return fmt.Errorf("file field %q has an invalid filename", name)
		}
	}
	return nil
}

func getLogger() logger.Logger {
	return logger.Global().Module("formdata")
}
