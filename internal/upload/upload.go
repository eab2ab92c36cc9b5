// Package upload is the image side-channel: message and profile images arrive
// as data URIs and are resolved to a stored URL before anything is persisted.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotImage = errors.New("payload is not an image data URI")

// Saver resolves an inline image payload to a serveable URL.
type Saver interface {
	Save(dataURI string) (url string, err error)
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DiskSaver writes decoded images under Dir and returns URLs below BaseURL.
type DiskSaver struct {
	Dir     string
	BaseURL string // e.g. "/uploads"
}

func NewDiskSaver(dir string) (*DiskSaver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskSaver{Dir: dir, BaseURL: "/uploads"}, nil
}

func (d *DiskSaver) Save(dataURI string) (string, error) {
	mime, payload, ok := splitDataURI(dataURI)
	if !ok {
		return "", ErrNotImage
	}
	ext, ok := extensions[mime]
	if !ok {
		return "", fmt.Errorf("%w: unsupported type %s", ErrNotImage, mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: bad base64", ErrNotImage)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return "", err
	}
	return path.Join(d.BaseURL, name), nil
}

func splitDataURI(s string) (mime, payload string, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", "", false
	}
	rest := s[len("data:"):]
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime, _, _ = strings.Cut(header, ";")
	if !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	return mime, payload, true
}
