package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Store persists uploaded files and returns the reference kept in the
// database.
type Store interface {
	Save(category, filename string, r io.Reader) (string, error)
	// Delete removes a file by the reference Save returned. Deleting a
	// missing file is not an error.
	Delete(ref string) error
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// LocalStore writes uploads below a directory that is also served over HTTP.
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates a LocalStore writing to root and returning references
// under urlPrefix.
func NewLocalStore(root, urlPrefix string) *LocalStore {
	return &LocalStore{root: root, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}
}

// Root returns the directory uploads are written to.
func (s *LocalStore) Root() string {
	return s.root
}

// Save copies r to <root>/<category>/<uuid>_<filename>.
func (s *LocalStore) Save(category, filename string, r io.Reader) (string, error) {
	category = sanitize(category)
	if category == "" {
		return "", fmt.Errorf("storage: empty category")
	}

	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", dir, err)
	}

	name := uuid.NewString() + "_" + sanitize(filepath.Base(filename))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", name, err)
	}
	return path.Join(s.urlPrefix, category, name), nil
}

// Delete removes the file behind ref. Only references of the form
// <urlPrefix>/<category>/<name> are accepted.
func (s *LocalStore) Delete(ref string) error {
	rel, ok := strings.CutPrefix(path.Clean("/"+ref), s.urlPrefix+"/")
	if !ok {
		return fmt.Errorf("storage: %q is not under %s", ref, s.urlPrefix)
	}
	category, name, ok := strings.Cut(rel, "/")
	if !ok || category != sanitize(category) || name != sanitize(name) {
		return fmt.Errorf("storage: invalid reference %q", ref)
	}

	err := os.Remove(filepath.Join(s.root, category, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", ref, err)
	}
	return nil
}

func sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}
