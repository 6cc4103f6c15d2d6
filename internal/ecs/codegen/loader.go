package codegen

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSchemaReader parses a YAML schema document from r.
func LoadSchemaReader(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("codegen: decode schema: %w", err)
	}
	return &s, nil
}

// LoadSchemaFile reads and parses the YAML schema document at path.
func LoadSchemaFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codegen: open schema file: %w", err)
	}
	defer f.Close()
	return LoadSchemaReader(f)
}
