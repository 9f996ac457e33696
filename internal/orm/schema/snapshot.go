package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a catalog snapshot file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Snapshot is the serialized form of a catalog
type Snapshot struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

// FormatFromPath picks the snapshot format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// LoadFile reads a snapshot file and builds a catalog from it
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode reads a snapshot and builds a catalog from it
func Decode(r io.Reader, format Format) (*Catalog, error) {
	var snap Snapshot

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&snap); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return NewCatalog(snap.Tables)
}

// Encode writes the catalog as a snapshot
func Encode(w io.Writer, c *Catalog, format Format) error {
	snap := Snapshot{Tables: make([]Table, 0, c.Len())}
	for _, t := range c.tables {
		snap.Tables = append(snap.Tables, *t)
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode yaml snapshot: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
