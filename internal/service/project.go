package service

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

// ProjectType discriminates which codec a project is persisted with.
type ProjectType int

const (
	ProjectJSON ProjectType = iota
	ProjectBinary
)

// Extension returns the on-disk file extension for a project type.
func (t ProjectType) Extension() string {
	switch t {
	case ProjectBinary:
		return "mbp"
	default:
		return "json"
	}
}

func (t ProjectType) String() string {
	switch t {
	case ProjectBinary:
		return "binary"
	default:
		return "json"
	}
}

// FixtureBlueprintHead is the head-only record list_available_fixture_blueprints returns:
// enough to pick a blueprint without paying for the full definition.
type FixtureBlueprintHead struct {
	Identifier   string   `json:"identifier"`
	Meta         string   `json:"meta"`
	ModeNames    []string `json:"modeNames"`
	ChannelCount int      `json:"channelCount"`
}

// FixtureBlueprint is a full fixture definition as imported into a project.
type FixtureBlueprint struct {
	Identifier   string   `json:"identifier" bson:"identifier"`
	Meta         string   `json:"meta" bson:"meta"`
	ModeNames    []string `json:"modeNames" bson:"modeNames"`
	ChannelCount int      `json:"channelCount" bson:"channelCount"`
}

// Head reduces a full blueprint to its head-only record.
func (b FixtureBlueprint) Head() FixtureBlueprintHead {
	return FixtureBlueprintHead{
		Identifier:   b.Identifier,
		Meta:         b.Meta,
		ModeNames:    b.ModeNames,
		ChannelCount: b.ChannelCount,
	}
}

// Settings holds the project-scoped settings that influence the global lifecycle services.
type Settings struct {
	Autosave   *time.Duration `json:"autosave,omitempty" bson:"autosave,omitempty"`
	SaveOnQuit bool           `json:"saveOnQuit" bson:"saveOnQuit"`
}

// ProjectMetadata is the flat, always-persisted header of a project. FileName and
// ProjectType are transient: zeroed on save, repopulated on load from the file name itself.
type ProjectMetadata struct {
	Name      string    `json:"name" bson:"name"`
	ID        string    `json:"id" bson:"id"`
	LastSaved time.Time `json:"lastSaved" bson:"lastSaved"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`

	FileName    string      `json:"-" bson:"-"`
	ProjectType ProjectType `json:"-" bson:"-"`
}

// Project is the full persisted document: metadata, fixtures, DMX output configuration, and
// settings.
type Project struct {
	Metadata        ProjectMetadata     `json:"metadata" bson:"metadata"`
	Blueprints      []FixtureBlueprint  `json:"blueprints" bson:"blueprints"`
	EndpointMapping dmx.EndpointMapping `json:"endpointMapping" bson:"endpointMapping"`
	Settings        Settings            `json:"settings" bson:"settings"`
	Universes       int                 `json:"universes" bson:"universes"`
}

// DefaultProject is the stub project installed before any create/open: one empty universe,
// an invalid metadata stamp, no blueprints or endpoints. Every RPC surface has a harmless
// target before the project is ever replaced.
func DefaultProject() Project {
	now := time.Now()

	return Project{
		Metadata: ProjectMetadata{
			Name:        "Default invalid project",
			ID:          newProjectID(),
			LastSaved:   now,
			CreatedAt:   now,
			ProjectType: ProjectJSON,
		},
		Blueprints:      nil,
		EndpointMapping: dmx.EndpointMapping{},
		Settings:        Settings{SaveOnQuit: false},
		Universes:       1,
	}
}

func newProjectID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])

	return hex.EncodeToString(buf[:])
}
