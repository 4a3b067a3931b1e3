package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type, allowed: jpg, jpeg, png, gif")
	ErrInvalidImagePath = errors.New("invalid image path")
)

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// AllowedImage reports whether the filename carries an allowed image extension.
func AllowedImage(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ImageStore keeps uploaded toy images on the local filesystem.
type ImageStore struct {
	dir string
	now func() time.Time
}

// NewImageStore creates the upload directory when missing.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &ImageStore{dir: dir, now: time.Now}, nil
}

// Dir is the root the stored names are relative to.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save copies the upload to <timestamp>_<sanitized base><ext> and returns
// that name.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil || !AllowedImage(fh.Filename) {
		return "", ErrUnsupportedImage
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	name := s.uniqueName(fh.Filename)
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close image file: %w", err)
	}
	return name, nil
}

// Delete removes a stored image. A missing file is not an error.
func (s *ImageStore) Delete(name string) error {
	if name == "" {
		return nil
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return ErrInvalidImagePath
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image %s: %w", name, err)
	}
	return nil
}

func (s *ImageStore) uniqueName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := sanitize(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "image"
	}
	stamp := s.now().Format("20060102150405")
	name := fmt.Sprintf("%s_%s%s", stamp, base, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(s.dir, name)); errors.Is(err, os.ErrNotExist) {
			return name
		}
		name = fmt.Sprintf("%s_%s_%d%s", stamp, base, i, ext)
	}
}

func sanitize(base string) string {
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
	base = unsafeChars.ReplaceAllString(base, "")
	return strings.Trim(base, "._-")
}
