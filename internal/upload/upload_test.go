package upload_test

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/upload"
)

// multipartFile builds a *multipart.FileHeader the way gin would hand one
// to the handler layer.
func multipartFile(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="image"; filename="` + filename + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart failed: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("ParseMultipartForm failed: %v", err)
	}
	return req.MultipartForm.File["image"][0]
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	mgr, err := upload.NewManager(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	fh := multipartFile(t, "my photo!.png", "image/png", []byte("pngdata"))
	rel, err := mgr.SaveImage(fh)
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if !strings.HasSuffix(rel, "-my_photo_.png") {
		t.Errorf("stored name not sanitized: %q", rel)
	}

	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("reading stored file failed: %v", err)
	}
	if string(data) != "pngdata" {
		t.Errorf("stored content: got %q", data)
	}
}

func TestSaveImageRejectsNonImage(t *testing.T) {
	mgr, err := upload.NewManager(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	fh := multipartFile(t, "doc.pdf", "application/pdf", []byte("%PDF"))
	if _, err := mgr.SaveImage(fh); !errors.Is(err, upload.ErrNotImage) {
		t.Errorf("SaveImage: got %v, want ErrNotImage", err)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	mgr, err := upload.NewManager(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	fh := multipartFile(t, "a.png", "image/png", []byte("x"))
	rel, err := mgr.SaveImage(fh)
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if err := mgr.Remove(rel); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, rel)); !os.IsNotExist(err) {
		t.Errorf("file still present after Remove: %v", err)
	}

	// Removing an empty path is a no-op.
	if err := mgr.Remove(""); err != nil {
		t.Errorf("Remove empty: got %v, want nil", err)
	}
}
