// Package presets loads named deck-option presets from a directory of YAML
// files and serves them to the API, hot-reloading when files change on disk.
package presets

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/pkg/config"
)

// Preset is one named deck-option bundle a deck can be created from.
type Preset struct {
	Name    string             `json:"name"`
	Options models.DeckOptions `json:"options"`
}

// presetFile is the on-disk YAML shape. Options go through the same tolerant
// decoding as a deck's stored JSON, so a malformed key falls back to its
// default instead of failing the load.
type presetFile struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// Store holds the currently loaded presets. Safe for concurrent use; the
// watcher replaces the whole set atomically on reload.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	presets map[string]Preset
}

// NewStore creates a preset store over dir. Call Load before serving.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger, presets: make(map[string]Preset)}
}

// Load scans the directory and replaces the loaded preset set. A file that
// fails to parse is logged and skipped; it never poisons the rest.
func (s *Store) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("presets: read dir: %w", err)
	}

	loaded := make(map[string]Preset)
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		p, err := loadFile(path)
		if err != nil {
			s.logger.Warn("presets: skipping file", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		loaded[p.Name] = p
	}

	s.mu.Lock()
	s.presets = loaded
	s.mu.Unlock()
	s.logger.Info("presets: loaded", slog.Int("count", len(loaded)), slog.String("dir", s.dir))
	return nil
}

// Get returns the preset with the given name.
func (s *Store) Get(name string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[name]
	return p, ok
}

// List returns all loaded presets sorted by name.
func (s *Store) List() []Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func loadFile(path string) (Preset, error) {
	var pf presetFile
	if err := config.Load(path, &pf); err != nil {
		return Preset{}, err
	}
	name := pf.Name
	if name == "" {
		base := filepath.Base(path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	// Round-trip the options map through JSON so presets share the deck
	// options decoder, defaults and all.
	raw, err := json.Marshal(pf.Options)
	if err != nil {
		return Preset{}, fmt.Errorf("presets: encode options: %w", err)
	}
	return Preset{Name: name, Options: models.ParseDeckOptions(raw)}, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
