package engine

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadStory reads and parses a story YAML (or JSON) file into a Story struct.
func LoadStory(path string) (*Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open story %s: %w", path, err)
	}
	defer f.Close()

	s, err := DecodeStory(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", path, err)
	}
	return s, nil
}

// DecodeStory parses a story document. Nil node maps and nil nodes are normalised so
// callers can index freely.
func DecodeStory(r io.Reader) (*Story, error) {
	var s Story
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	if s.Nodes == nil {
		s.Nodes = make(map[string]*Node)
	}
	for id, n := range s.Nodes {
		if n == nil {
			s.Nodes[id] = &Node{}
		}
	}
	return &s, nil
}
