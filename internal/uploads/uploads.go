package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Saver writes uploaded images to a static-served directory. The returned
// identifiers are opaque relative paths handed back to clients.
type Saver struct {
	dir string
}

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// ErrUnsupportedType is returned for files outside the image allowlist.
type ErrUnsupportedType struct {
	Name string
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("file %s: only jpeg, jpg, png and gif uploads are supported", e.Name)
}

// New ensures the upload directory exists and returns a Saver over it.
func New(dir string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Saver{dir: dir}, nil
}

// Dir returns the directory static files are served from.
func (s *Saver) Dir() string { return s.dir }

// SaveImage persists one uploaded file under a unique name and returns its
// opaque path identifier. The field name is kept as a prefix so files remain
// recognizable on disk.
func (s *Saver) SaveImage(field string, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", &ErrUnsupportedType{Name: fh.Filename}
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s-%s%s", field, uuid.New().String(), ext)
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path.Join(path.Base(s.dir), name), nil
}
