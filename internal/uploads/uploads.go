// Package uploads is the object-storage collaborator: a handler hands over a
// multipart file and receives back the URL where it is now served.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store accepts file contents and yields a serving URL.
type Store interface {
	Save(filename string, r io.Reader) (string, error)
}

// LocalStore writes files under a directory served at baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore ensures the directory exists.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save stores the file under a timestamped name to keep names unique.
func (s *LocalStore) Save(filename string, r io.Reader) (string, error) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	name := fmt.Sprintf("%s-%d%s", base, time.Now().UnixNano(), ext)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return s.baseURL + "/" + name, nil
}
