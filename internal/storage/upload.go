package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"ingestion-gateway/internal/utils"
)

// UploadStore saves uploaded flat files under a single directory
type UploadStore struct {
	dir string
}

// NewUploadStore creates an upload store rooted at dir
func NewUploadStore(dir string) *UploadStore {
	return &UploadStore{dir: dir}
}

// Save writes r to the directory under the base name of name and returns the
// absolute path. An existing file with the same name is replaced. Content is
// staged in a uniquely named temp file and renamed into place, so readers
// never observe a half-written upload.
func (s *UploadStore) Save(name string, r io.Reader) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == ".." || base == "/" || strings.TrimSpace(base) == "" {
		return "", utils.NewValidationError("invalid file name", name)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", utils.NewIOError(err, fmt.Sprintf("create %s", s.dir))
	}
	dest, err := filepath.Abs(filepath.Join(s.dir, base))
	if err != nil {
		return "", utils.NewIOError(err, "resolve upload path")
	}

	tmp := filepath.Join(s.dir, ".upload-"+uuid.NewString()+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return "", utils.NewIOError(err, fmt.Sprintf("create %s", tmp))
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", utils.NewIOError(err, "write upload")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", utils.NewIOError(err, "write upload")
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", utils.NewIOError(err, fmt.Sprintf("store %s", dest))
	}
	return dest, nil
}
