package service

import (
	"fmt"

	"github.com/emrgen/exploration/internal/compress"
	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/model"
)

// decodeContent reverses the codec a row or snapshot was written with.
func decodeContent(name string, content []byte) ([]byte, error) {
	codec, err := compress.New(name)
	if err != nil {
		return nil, err
	}
	data, err := codec.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", name, err)
	}
	return data, nil
}

func decodeExploration(row *model.Exploration) (*exploration.Exploration, error) {
	data, err := decodeContent(row.Compression, row.Content)
	if err != nil {
		return nil, err
	}
	return exploration.Decode(data, row.Version)
}

func decodeSnapshot(snapshot *model.ExplorationSnapshot) (*exploration.Exploration, error) {
	data, err := decodeContent(snapshot.Compression, snapshot.Content)
	if err != nil {
		return nil, err
	}
	return exploration.Decode(data, snapshot.Version)
}
