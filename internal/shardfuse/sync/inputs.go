package sync

import (
	"context"
	"fmt"
	"os"

	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
)

// Files locates input documents on disk. CostToMax is optional.
type Files struct {
	Catalog   string
	Prices    string
	CostToMax string
}

// Paths returns the configured paths, skipping empty ones.
func (f Files) Paths() []string {
	var out []string
	for _, p := range []string{f.Catalog, f.Prices, f.CostToMax} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ReadFiles reads the input documents from disk.
func ReadFiles(f Files) (engine.Inputs, error) {
	var in engine.Inputs
	var err error

	if in.Items, err = os.ReadFile(f.Catalog); err != nil {
		return engine.Inputs{}, fmt.Errorf("reading catalog file: %w", err)
	}
	if in.Prices, err = os.ReadFile(f.Prices); err != nil {
		return engine.Inputs{}, fmt.Errorf("reading prices file: %w", err)
	}
	if f.CostToMax != "" {
		if in.CostToMax, err = os.ReadFile(f.CostToMax); err != nil {
			return engine.Inputs{}, fmt.Errorf("reading cost-to-max file: %w", err)
		}
	}
	return in, nil
}

// Input origins reported by LoadInputs.
const (
	OriginStore = "store"
	OriginFiles = "files"
)

// LoadInputs returns the stored documents when the store holds a catalog
// and a price snapshot, else the documents read from files. s may be nil.
func LoadInputs(ctx context.Context, s *Syncer, f Files) (engine.Inputs, string, error) {
	if s != nil {
		in, ok, err := s.StoredInputs(ctx)
		if err != nil {
			return engine.Inputs{}, "", fmt.Errorf("loading stored inputs: %w", err)
		}
		if ok {
			return in, OriginStore, nil
		}
	}

	in, err := ReadFiles(f)
	if err != nil {
		return engine.Inputs{}, "", err
	}
	return in, OriginFiles, nil
}
