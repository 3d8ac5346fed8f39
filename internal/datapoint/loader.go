package datapoint

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-dpt/internal/dpt"
)

// bindingsFile is the on-disk layout of a bindings seed file.
type bindingsFile struct {
	Bindings []Binding `yaml:"bindings"`
}

// LoadBindingsFile reads a YAML bindings file, validates every entry
// against reg and upserts them into repo. Nothing is written if any
// entry is invalid.
func LoadBindingsFile(ctx context.Context, path string, reg *dpt.Registry, repo Repository) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return 0, fmt.Errorf("reading bindings file: %w", err)
	}

	var f bindingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("%w: parsing %s: %w", ErrInvalidBinding, path, err)
	}

	var errs []error
	seen := make(map[string]bool, len(f.Bindings))
	for i := range f.Bindings {
		b := &f.Bindings[i]
		if err := b.Validate(reg); err != nil {
			errs = append(errs, fmt.Errorf("binding %d: %w", i, err))
			continue
		}
		if seen[b.GroupAddress] {
			errs = append(errs, fmt.Errorf("%w: duplicate group address %s", ErrInvalidBinding, b.GroupAddress))
		}
		seen[b.GroupAddress] = true
	}
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}

	for i := range f.Bindings {
		if err := repo.Upsert(ctx, &f.Bindings[i]); err != nil {
			return i, err
		}
	}
	return len(f.Bindings), nil
}
