package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// saveUpload stores the "file" form field in a temporary file and returns
// its path. The temporary file keeps the extension of the uploaded name.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	// Parts beyond this stay on disk until the form is cleaned up.
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", ErrMissingFile
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	defer file.Close()

	dir := s.uploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*"+uploadExt(header.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return tmp.Name(), nil
}

// uploadExt returns the extension of a client-supplied file name.
// Directory components are discarded and separators cannot leak into the
// temporary file pattern.
func uploadExt(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	ext := filepath.Ext(filepath.Base(name))
	if strings.ContainsAny(ext, "/*") {
		return ""
	}
	return ext
}
