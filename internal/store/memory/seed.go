package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"spendwise/internal/core"
)

// SeedFile is the YAML layout of a category seed file:
//
//	categories:
//	  - name: Groceries
//	    color: "#33aa33"
//	  - id: 10
//	    name: Rent
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
}

type SeedCategory struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// LoadCategories reads a seed file. An empty path or a missing file yields the
// default categories.
func LoadCategories(path string) ([]core.Category, error) {
	if path == "" {
		return core.DefaultCategories(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.DefaultCategories(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read category seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML. Entries without an id are numbered after the
// highest explicit id, in file order.
func ParseSeed(data []byte) ([]core.Category, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse category seed: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, &core.ValidationError{Field: "categories", Reason: "seed file has no categories"}
	}

	var next int64
	for _, c := range f.Categories {
		if c.ID < 0 {
			return nil, &core.ValidationError{Field: "id", Value: fmt.Sprint(c.ID), Reason: "category id must be positive"}
		}
		if c.ID > next {
			next = c.ID
		}
	}

	out := make([]core.Category, 0, len(f.Categories))
	for _, c := range f.Categories {
		name, color, err := core.NormalizeCategory(c.Name, c.Color)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		id := c.ID
		if id == 0 {
			next++
			id = next
		}
		out = append(out, core.Category{ID: id, Name: name, Color: color})
	}
	return out, nil
}

// NewFromFile builds a store seeded from a category file.
func NewFromFile(path string) (*Store, error) {
	cats, err := LoadCategories(path)
	if err != nil {
		return nil, err
	}
	return New(cats), nil
}
