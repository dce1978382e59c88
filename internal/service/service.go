package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

// Service is the shared service object every RPC handler and global lifecycle loop holds a
// clone of: the active project behind a reader-preferred lock, a separate validity flag so
// cheap validity checks never touch the project lock, and the process-wide Info/status
// watch channels.
type Service struct {
	mu      sync.RWMutex
	project Project

	validMu sync.RWMutex
	valid   bool

	info   *Watch[Info]
	status *Watch[string]

	store *Store
	ofl   *OflLoader

	log logger.Logger
}

// NewService constructs the service object seeded with the default stub project.
func NewService(cfg *config.Config, log logger.Logger) *Service {
	s := &Service{
		project: DefaultProject(),
		info:    NewWatch(IdleInfo()),
		status:  NewWatch(""),
		store:   NewStore(cfg.ProjectsDir()),
		log:     log.WithComponent("service"),
	}
	s.ofl = NewOflLoader(cfg.LibraryFile(), s.status)

	return s
}

// Info returns the process-wide Info watch, for subscribing or publishing.
func (s *Service) Info() *Watch[Info] { return s.info }

// Status returns the free-text status watch.
func (s *Service) Status() *Watch[string] { return s.status }

// OFL returns the fixture library bridge.
func (s *Service) OFL() *OflLoader { return s.ofl }

// Store returns the projects-directory-backed persistence layer.
func (s *Service) Store() *Store { return s.store }

// Valid reports whether a real project (as opposed to the default stub) is loaded.
func (s *Service) Valid() bool {
	s.validMu.RLock()
	defer s.validMu.RUnlock()

	return s.valid
}

func (s *Service) setValid(v bool) {
	s.validMu.Lock()
	s.valid = v
	s.validMu.Unlock()
}

// Project returns a copy of the active project.
func (s *Service) Project() Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project
}

// WithProject runs fn with exclusive write access to the active project. fn must not block
// on anything that could re-enter this lock.
func (s *Service) WithProject(fn func(p *Project)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.project)
}

// UniverseCount satisfies universe.ProjectView.
func (s *Service) UniverseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.project.Universes < 1 {
		return 1
	}

	return s.project.Universes
}

// EndpointMapping satisfies endpoints.MappingView.
func (s *Service) EndpointMapping() dmx.EndpointMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project.EndpointMapping
}

// Create derives a project file from name/kind via the store, without installing it as the
// active project.
func (s *Service) Create(name string, kind ProjectType) (string, error) {
	return s.store.Create(name, kind)
}

// List enumerates the projects directory for metadata-only records.
func (s *Service) List() ([]ProjectMetadata, error) {
	return s.store.List()
}

// Open loads ident as the active project and marks the service valid. The caller is
// responsible for notifying adapt with every scope.
func (s *Service) Open(ident string) (bool, error) {
	project, ok, err := s.store.Open(ident)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	s.project = project
	s.mu.Unlock()

	s.setValid(true)

	return true, nil
}

// Delete removes ident's backing file, refusing (as a no-op, not an error) to delete the
// currently active project.
func (s *Service) Delete(ident string) error {
	s.mu.RLock()
	active := s.project.Metadata.FileName
	s.mu.RUnlock()

	if active == ident {
		return nil
	}

	return s.store.Delete(ident)
}

// Save persists the active project, stamping LastSaved. It returns false (not an error) if
// no valid project is loaded, matching GeneralService.save's contract.
func (s *Service) Save() (bool, error) {
	if !s.Valid() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	codec, ok := codecFor(s.project.Metadata.ProjectType)
	if !ok {
		return false, fmt.Errorf("%w: %s", apperrors.ErrUnknownCodec, s.project.Metadata.ProjectType)
	}

	// LastSaved is stamped before encoding so the persisted document carries the new
	// timestamp, and rolled back on any failure so the in-memory value only ever advances
	// when the write actually succeeded.
	prevSaved := s.project.Metadata.LastSaved
	s.project.Metadata.LastSaved = time.Now()

	fileName := s.project.Metadata.FileName
	data, err := codec.Encode(withoutTransientMetadata(s.project))
	if err != nil {
		s.project.Metadata.LastSaved = prevSaved
		return false, fmt.Errorf("%w: %w", apperrors.ErrSavingFailed, err)
	}

	dir := filepath.Dir(filepath.Join(s.store.dir, fileName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.project.Metadata.LastSaved = prevSaved
		return false, fmt.Errorf("%w: %w", apperrors.ErrSavingFailed, err)
	}

	path := filepath.Join(s.store.dir, fileName+"."+codec.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.project.Metadata.LastSaved = prevSaved
		return false, fmt.Errorf("%w: %w", apperrors.ErrSavingFailed, err)
	}

	return true, nil
}

// ImportFixtureBlueprints loads the requested ids (after glob expansion), replaces any
// existing blueprint with the same identifier, and resorts by identifier. It returns the ids
// that were not found, so the caller can publish Info::Warning for them.
func (s *Service) ImportFixtureBlueprints(ids []string) ([]string, error) {
	expanded, err := s.ofl.ExpandIDs(ids)
	if err != nil {
		return nil, err
	}

	found, missing, err := s.ofl.Load(expanded)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	byID := make(map[string]FixtureBlueprint, len(s.project.Blueprints))
	for _, b := range s.project.Blueprints {
		byID[b.Identifier] = b
	}
	for _, b := range found {
		byID[b.Identifier] = b
	}

	merged := make([]FixtureBlueprint, 0, len(byID))
	for _, b := range byID {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Identifier < merged[j].Identifier })

	s.project.Blueprints = merged
	s.mu.Unlock()

	s.info.Publish(ProjectInfoEvent(ProjectInfoBlueprintsChanged))

	return missing, nil
}

// ListBlueprints returns the blueprints currently imported into the active project.
func (s *Service) ListBlueprints() []FixtureBlueprint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FixtureBlueprint, len(s.project.Blueprints))
	copy(out, s.project.Blueprints)

	return out
}

// UniverseList returns 1..=N for the active project's universe count.
func (s *Service) UniverseList() []uint16 {
	n := s.UniverseCount()
	list := make([]uint16, n)
	for i := range list {
		list[i] = uint16(i + 1)
	}

	return list
}

// GetSettings returns the active project's settings.
func (s *Service) GetSettings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project.Settings
}

// UpdateSettings replaces the active project's settings. The caller (the rpc layer) is
// expected to call adapt.Notify(coordination.ScopeSettings) alongside this.
func (s *Service) UpdateSettings(settings Settings) {
	s.mu.Lock()
	s.project.Settings = settings
	s.mu.Unlock()

	s.info.Publish(ProjectInfoEvent(ProjectInfoSettingsChanged))
}

// GetMeta returns the active project's metadata.
func (s *Service) GetMeta() ProjectMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project.Metadata
}
