// Package prefs stores device-local UI preferences: column order, category
// order and the last view mode.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dori/taskdeck/internal/model"
	"gopkg.in/yaml.v3"
)

// Prefs are remembered between sessions on one device
type Prefs struct {
	StatusOrder   []model.Status `yaml:"status_order"`
	CategoryOrder []string       `yaml:"category_order"`
	ViewMode      string         `yaml:"view_mode"`
	Category      string         `yaml:"category,omitempty"`
}

// Load reads prefs from path. A missing file yields zero Prefs.
func Load(path string) (Prefs, error) {
	var p Prefs
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(&p)
	if errors.Is(err, io.EOF) {
		return Prefs{}, nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return p, nil
}

// Save writes prefs to path atomically
func Save(path string, p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
