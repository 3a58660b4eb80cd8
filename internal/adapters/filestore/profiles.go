// Package filestore persists connection profiles in a local YAML file.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/mapview/internal/core/ports"
)

// ProfileRepository implements ports.ProfileRepository with a YAML file.
type ProfileRepository struct {
	path string
	mu   sync.Mutex
}

// NewProfileRepository stores profiles at path.
func NewProfileRepository(path string) *ProfileRepository {
	return &ProfileRepository{path: path}
}

// Load reads the file. A missing file yields a nil state.
func (r *ProfileRepository) Load(ctx context.Context) (*ports.ProfileState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	var state ports.ProfileState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return &state, nil
}

// Save writes the state through a temporary file and a rename.
func (r *ProfileRepository) Save(ctx context.Context, state *ports.ProfileState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".profiles-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write profiles: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close profiles: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}
