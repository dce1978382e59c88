package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

// Store is the projects-directory-backed persistence layer: create derives a disk file name
// via the slugger, list enumerates metadata only, open loads a full project by trying every
// known codec extension in order.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, which is created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Create derives a disk stem from name via the slugger, disambiguating against existing
// files with a "_0", "_1", ... suffix, then persists an empty project of the requested kind
// under that stem. It returns the stem (the project's ident).
func (s *Store) Create(name string, kind ProjectType) (string, error) {
	codec, ok := codecFor(kind)
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnknownCodec, kind)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrCreateProject, err)
	}

	stem := dmx.Slug(name)
	if stem == "" {
		stem = "project"
	}

	ident, err := s.disambiguate(stem, codec.Extension())
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrCreateProject, err)
	}

	project := DefaultProject()
	project.Metadata.Name = name
	project.Metadata.ProjectType = kind
	project.Metadata.FileName = ident

	data, err := codec.Encode(withoutTransientMetadata(project))
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrCreateProject, err)
	}

	path := filepath.Join(s.dir, ident+"."+codec.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrCreateProject, err)
	}

	return ident, nil
}

// disambiguate returns stem if <stem>.<ext> doesn't already exist under the store's
// directory, otherwise the first "<stem>_<n>" that doesn't.
func (s *Store) disambiguate(stem, ext string) (string, error) {
	path := filepath.Join(s.dir, stem+"."+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return stem, nil
	}

	for n := 0; n <= maxSuffix; n++ {
		candidate := stem + "_" + strconv.Itoa(n)
		path := filepath.Join(s.dir, candidate+"."+ext)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return candidate, nil
		}
	}

	return "", apperrors.New("no available project file name suffix")
}

// maxSuffix is a practical cap on the "_0", "_1", ... disambiguation suffix; a u32::MAX
// bound would never be reachable in practice, so this stays far smaller.
const maxSuffix = 1 << 20

// List enumerates the projects directory, loading metadata only from every file whose
// extension matches a known codec.
func (s *Store) List() ([]ProjectMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: %w", apperrors.ErrProjectList, err)
	}

	var result []ProjectMetadata
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		codec, ok := codecForExtension(ext)
		if !ok {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrProjectList, err)
		}

		meta, err := codec.DecodeMetadata(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrProjectList, err)
		}

		meta.FileName = strings.TrimSuffix(name, filepath.Ext(name))
		meta.ProjectType = codec.Kind()
		result = append(result, meta)
	}

	return result, nil
}

// Open tries <ident>.<ext> for every known codec in order, returning the first hit.
func (s *Store) Open(ident string) (Project, bool, error) {
	for _, codec := range codecsInOrder() {
		path := filepath.Join(s.dir, ident+"."+codec.Extension())

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return Project{}, false, fmt.Errorf("%w: %w", apperrors.ErrOpenProject, err)
		}

		project, err := codec.Decode(data)
		if err != nil {
			return Project{}, false, fmt.Errorf("%w: %w", apperrors.ErrOpenProject, err)
		}

		project.Metadata.FileName = ident
		project.Metadata.ProjectType = codec.Kind()

		return project, true, nil
	}

	return Project{}, false, nil
}

// Delete removes the backing file for ident across every known codec extension. Deleting a
// nonexistent ident is not an error (immediate unlink, not a trash can); the caller is
// responsible for refusing to delete the active project.
func (s *Store) Delete(ident string) error {
	var lastErr error
	removed := false

	for _, codec := range codecsInOrder() {
		path := filepath.Join(s.dir, ident+"."+codec.Extension())

		err := os.Remove(path)
		switch {
		case err == nil:
			removed = true
		case os.IsNotExist(err):
			// nothing to remove for this extension
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrDeleteProject, lastErr)
	}

	if !removed {
		return nil
	}

	return nil
}

func codecFor(kind ProjectType) (Codec, bool) {
	for _, codec := range codecsInOrder() {
		if codec.Kind() == kind {
			return codec, true
		}
	}

	return nil, false
}

func codecForExtension(ext string) (Codec, bool) {
	for _, codec := range codecsInOrder() {
		if codec.Extension() == ext {
			return codec, true
		}
	}

	return nil, false
}

// withoutTransientMetadata returns a copy of p with FileName/ProjectType zeroed, matching
// the on-disk contract that both fields are transient and repopulated from the file name on
// load.
func withoutTransientMetadata(p Project) Project {
	p.Metadata.FileName = ""
	p.Metadata.ProjectType = 0

	return p
}
