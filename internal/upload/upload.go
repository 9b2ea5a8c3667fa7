package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxFileSize caps uploaded images at 5 MiB.
const MaxFileSize = 5 << 20

var (
	// ErrNotImage rejects uploads whose content type is not image/*.
	ErrNotImage = errors.New("only image uploads are allowed")
	// ErrTooLarge rejects uploads over MaxFileSize.
	ErrTooLarge = errors.New("uploaded file too large")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Manager persists uploaded images under a configured root directory and
// hands back paths relative to it. Serving the files over HTTP is the
// router's job.
type Manager struct {
	dir    string
	logger *zap.Logger
}

// NewManager creates the upload root if needed.
func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Manager{dir: dir, logger: logger}, nil
}

// Dir returns the upload root.
func (m *Manager) Dir() string {
	return m.dir
}

// SaveImage stores an uploaded image and returns its path relative to the
// upload root. The stored name is the upload time in milliseconds plus the
// sanitized original filename.
func (m *Manager) SaveImage(fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		m.logger.Warn("rejected upload: not an image",
			zap.String("type", contentType),
			zap.String("name", fh.Filename),
		)
		return "", ErrNotImage
	}
	if fh.Size > MaxFileSize {
		m.logger.Warn("rejected upload: too large",
			zap.Int64("size", fh.Size),
			zap.String("name", fh.Filename),
		)
		return "", ErrTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	safe := unsafeChars.ReplaceAllString(filepath.Base(fh.Filename), "_")
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), safe)

	dst, err := os.Create(filepath.Join(m.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		_ = os.Remove(dst.Name())
		return "", err
	}

	m.logger.Debug("stored upload",
		zap.String("name", name),
		zap.String("type", contentType),
		zap.Int64("size", fh.Size),
	)
	return name, nil
}

// Remove deletes a stored file by its relative path. Used for best-effort
// cleanup after a post delete; callers log and move on when it fails.
func (m *Manager) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	return os.Remove(filepath.Join(m.dir, filepath.Clean(rel)))
}
