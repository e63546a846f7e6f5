// Package export writes a computed snapshot as JSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q: must be json or yaml", s)
}

// Dump is the processed form of one snapshot.
type Dump struct {
	Stats        shardfuse.CatalogStats       `json:"stats" yaml:"stats"`
	CostToMax    map[string]int               `json:"cost_to_max" yaml:"cost_to_max"`
	Items        []shardfuse.ItemView         `json:"items" yaml:"items"`
	Groups       map[string][]shardfuse.Group `json:"groups" yaml:"groups"`
	Requirements []shardfuse.RequirementInfo  `json:"requirements" yaml:"requirements"`
}

// Build assembles the dump. limit caps the per-item lists; 0 means no cap.
func Build(snap *engine.Snapshot, limit int) (*Dump, error) {
	if limit <= 0 {
		limit = math.MaxInt
	}

	d := &Dump{
		Stats:        snap.Stats(),
		CostToMax:    make(map[string]int),
		Items:        make([]shardfuse.ItemView, 0, snap.Catalog.Len()),
		Groups:       make(map[string][]shardfuse.Group),
		Requirements: snap.FindRequirements(shardfuse.RequirementsRequest{Limit: math.MaxInt}).Requirements,
	}

	for r, units := range snap.Catalog.CostToMaxTable() {
		d.CostToMax[string(r)] = units
	}

	for _, it := range snap.Catalog.Items() {
		view, err := snap.ItemView(it.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("building view of %s: %w", it.ID, err)
		}
		d.Items = append(d.Items, *view)
	}

	for _, kind := range shardfuse.GroupKinds() {
		resp, err := snap.GroupIndex(kind)
		if err != nil {
			return nil, err
		}
		d.Groups[string(kind)] = resp.Groups
	}
	return d, nil
}

// Write encodes d to w.
func Write(w io.Writer, d *Dump, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flushing YAML: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}
