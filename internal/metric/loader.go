package metric

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a catalog extension
type File struct {
	Metrics []Descriptor `yaml:"metrics"`
}

// Parse decodes a catalog extension. Unknown fields are rejected.
func Parse(data []byte) ([]Descriptor, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 오타 필드는 즉시 실패
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode metric catalog: %w", err)
	}

	for _, d := range f.Metrics {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Metrics, nil
}

// LoadFile registers every metric declared in a YAML file
func (c *Catalog) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read metric catalog: %w", err)
	}

	descriptors, err := Parse(data)
	if err != nil {
		return 0, err
	}

	for _, d := range descriptors {
		if err := c.Register(d); err != nil {
			return 0, err
		}
	}
	return len(descriptors), nil
}
