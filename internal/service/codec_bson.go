package service

import "go.mongodb.org/mongo-driver/v2/bson"

// BSONCodec persists projects as binary BSON documents (the ".mbp" extension), giving large
// projects with many imported blueprints a more compact on-disk form than JSON.
type BSONCodec struct{}

func (BSONCodec) Kind() ProjectType { return ProjectBinary }
func (BSONCodec) Extension() string { return ProjectBinary.Extension() }

func (BSONCodec) Encode(p Project) ([]byte, error) {
	return bson.Marshal(p)
}

func (BSONCodec) Decode(data []byte) (Project, error) {
	var p Project
	if err := bson.Unmarshal(data, &p); err != nil {
		return Project{}, err
	}

	return p, nil
}

func (BSONCodec) DecodeMetadata(data []byte) (ProjectMetadata, error) {
	var wrapper struct {
		Metadata ProjectMetadata `bson:"metadata"`
	}
	if err := bson.Unmarshal(data, &wrapper); err != nil {
		return ProjectMetadata{}, err
	}

	return wrapper.Metadata, nil
}
