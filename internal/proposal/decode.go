package proposal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a proposal from a .json, .yaml or .yml file.
func LoadFile(path string) (Proposal, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Proposal{}, fmt.Errorf("read proposal: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(b)
	default:
		return DecodeJSON(b)
	}
}

func DecodeJSON(b []byte) (Proposal, error) {
	var p Proposal
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Proposal{}, fmt.Errorf("decode proposal json: %w", err)
	}
	return p, nil
}

func DecodeYAML(b []byte) (Proposal, error) {
	var p Proposal
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Proposal{}, fmt.Errorf("decode proposal yaml: %w", err)
	}
	return p, nil
}
