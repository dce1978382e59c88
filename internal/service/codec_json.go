package service

import "encoding/json"

// JSONCodec persists projects as pretty-printed JSON, the default project type.
type JSONCodec struct{}

func (JSONCodec) Kind() ProjectType { return ProjectJSON }
func (JSONCodec) Extension() string { return ProjectJSON.Extension() }

func (JSONCodec) Encode(p Project) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

func (JSONCodec) Decode(data []byte) (Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, err
	}

	return p, nil
}

func (JSONCodec) DecodeMetadata(data []byte) (ProjectMetadata, error) {
	var wrapper struct {
		Metadata ProjectMetadata `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return ProjectMetadata{}, err
	}

	return wrapper.Metadata, nil
}
