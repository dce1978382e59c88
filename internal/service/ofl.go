package service

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gobwas/glob"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
)

// OflLoader is the bridge to the cached Open Fixture Library index at
// <data-dir>/marvin_light_control/library/ofl.json. Status messages about its own progress
// flow onto the shared status watch, the same global status channel every other subsystem
// reports through.
type OflLoader struct {
	libraryFile string
	status      *Watch[string]
}

// NewOflLoader constructs a loader bound to libraryFile.
func NewOflLoader(libraryFile string, status *Watch[string]) *OflLoader {
	return &OflLoader{libraryFile: libraryFile, status: status}
}

// ListAvailable returns head-only records for every blueprint in the cached library index.
func (l *OflLoader) ListAvailable() ([]FixtureBlueprintHead, error) {
	l.status.Publish("loading fixture library index")

	all, err := l.readIndex()
	if err != nil {
		l.status.Publish("fixture library index load failed")
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBlueprintListFailed, err)
	}

	heads := make([]FixtureBlueprintHead, 0, len(all))
	for _, b := range all {
		heads = append(heads, b.Head())
	}

	l.status.Publish("fixture library index loaded")

	return heads, nil
}

// ExpandIDs resolves the requested ids against the cached index, expanding any id containing
// a glob metacharacter ('*' or '?') into every matching identifier. It extends
// import_fixture_blueprints beyond exact-id matching without a new RPC operation.
func (l *OflLoader) ExpandIDs(ids []string) ([]string, error) {
	all, err := l.readIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrBlueprintListFailed, err)
	}

	known := make([]string, 0, len(all))
	for _, b := range all {
		known = append(known, b.Identifier)
	}

	seen := map[string]bool{}
	var expanded []string

	for _, id := range ids {
		if !isGlobPattern(id) {
			if !seen[id] {
				seen[id] = true
				expanded = append(expanded, id)
			}
			continue
		}

		g, err := glob.Compile(id)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pattern %q: %w", apperrors.ErrBlueprintListFailed, id, err)
		}

		for _, candidate := range known {
			if g.Match(candidate) && !seen[candidate] {
				seen[candidate] = true
				expanded = append(expanded, candidate)
			}
		}
	}

	return expanded, nil
}

// Load returns the full blueprints for every id found in the index, plus the subset of ids
// that were not found.
func (l *OflLoader) Load(ids []string) (found []FixtureBlueprint, missing []string, err error) {
	all, err := l.readIndex()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", apperrors.ErrBlueprintListFailed, err)
	}

	byID := make(map[string]FixtureBlueprint, len(all))
	for _, b := range all {
		byID[b.Identifier] = b
	}

	for _, id := range ids {
		if b, ok := byID[id]; ok {
			found = append(found, b)
		} else {
			missing = append(missing, id)
		}
	}

	return found, missing, nil
}

func (l *OflLoader) readIndex() ([]FixtureBlueprint, error) {
	data, err := os.ReadFile(l.libraryFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var all []FixtureBlueprint
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	return all, nil
}

func isGlobPattern(id string) bool {
	for _, r := range id {
		if r == '*' || r == '?' {
			return true
		}
	}

	return false
}
