package documents

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"docchat/internal/helper"
	"docchat/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidName      = errors.New("invalid document name")
)

// Library is the upload directory. Documents are addressed by their slash-separated path
// relative to it; uploads always land at the top level under their base name.
type Library struct {
	dir       string
	supported func(path string) bool
}

// NewLibrary creates dir if needed. supported filters the files List and Files report.
func NewLibrary(dir string, supported func(path string) bool) (*Library, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := helper.CreateFolder(abs); err != nil {
		return nil, err
	}
	return &Library{dir: abs, supported: supported}, nil
}

func (l *Library) Dir() string { return l.dir }

// Path returns the absolute path of the document at the relative path name.
func (l *Library) Path(name string) (string, error) {
	clean, err := cleanRelPath(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.dir, filepath.FromSlash(clean)), nil
}

// Rel returns the library-relative name of path and whether path lies inside the library.
func (l *Library) Rel(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(l.dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Lookup returns the absolute path of an existing document.
func (l *Library) Lookup(name string) (string, error) {
	path, err := l.Path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// cleanRelPath rejects absolute paths, backslashes, dot segments and hidden files.
func cleanRelPath(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return path.Clean(name), nil
}

// validateName accepts a plain file name without any directory part.
func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes r to the top-level document name, replacing an existing file of the same name.
func (l *Library) Save(name string, r io.Reader) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(l.dir, name)

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	log.Debug().Str("file", path).Msg("Saved document")
	return path, nil
}

// List walks the directory recursively and returns supported documents sorted by relative path.
func (l *Library) List() ([]models.DocumentInfo, error) {
	var docs []models.DocumentInfo
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !l.supported(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return err
		}
		docs = append(docs, models.DocumentInfo{
			Name:    d.Name(),
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			Path:    path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	return docs, nil
}

// Files returns the absolute paths of all supported documents.
func (l *Library) Files() ([]string, error) {
	docs, err := l.List()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	return paths, nil
}

// Delete removes the document at the relative path name.
func (l *Library) Delete(name string) error {
	path, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Clear removes everything in the directory but keeps the directory itself.
func (l *Library) Clear() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(l.dir, e.Name())); err != nil {
			return fmt.Errorf("failed to clear documents: %w", err)
		}
	}
	return nil
}
