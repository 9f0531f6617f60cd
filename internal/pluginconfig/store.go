package pluginconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	// ErrNoConfig is returned by a Store that holds no configuration yet.
	ErrNoConfig = errors.New("configuration not found")
	// ErrConfigCorrupt marks stored data that cannot be read as a configuration.
	ErrConfigCorrupt = errors.New("configuration corrupt")
)

// Store reads and writes the raw configuration document.
type Store interface {
	Read() (Tree, error)
	Write(tree Tree) error
}

// FileStore keeps the configuration as an indented JSON file.
type FileStore struct {
	Path string
}

// Read returns ErrNoConfig for a missing file and ErrConfigCorrupt for
// anything that is not a JSON object.
func (s FileStore) Read() (Tree, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigCorrupt, filepath.Base(s.Path), err)
	}

	tree, ok := doc.(Tree)
	if !ok {
		return nil, fmt.Errorf("%w: %s: top level is not an object", ErrConfigCorrupt, filepath.Base(s.Path))
	}
	return tree, nil
}

// Write replaces the file with tree.
func (s FileStore) Write(tree Tree) error {
	b, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(s.Path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	return nil
}
