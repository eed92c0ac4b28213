package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// MemoryDisabled is stored as the memory URL when the user opted out of
// long-term memory during intake.
const MemoryDisabled = "SKIP"

// Settings are the values collected from the user at first run.
type Settings struct {
	APIKey    string `toml:"api_key"`
	MemoryURL string `toml:"memory_url"`
}

// MemoryEnabled reports whether a usable memory endpoint is configured.
func (s Settings) MemoryEnabled() bool {
	return s.MemoryURL != "" && s.MemoryURL != MemoryDisabled
}

type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
}

// FileSettings persists Settings as a TOML file.
type FileSettings struct {
	Path string
	mu   sync.Mutex
}

func NewFileSettings(path string) *FileSettings {
	return &FileSettings{Path: path}
}

// DefaultSettingsPath returns the per-user settings file location.
func DefaultSettingsPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join("symbiosis", "settings.toml"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve settings path: %w", err)
	}
	return path, nil
}

func (f *FileSettings) Load() (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var s Settings
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings '%s': %w", f.Path, err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

func (f *FileSettings) Save(s Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings '%s': %w", f.Path, err)
	}
	return nil
}

// MemorySettings keeps Settings in process memory only.
type MemorySettings struct {
	mu sync.Mutex
	s  Settings
}

func NewMemorySettings(s Settings) *MemorySettings {
	return &MemorySettings{s: s}
}

func (m *MemorySettings) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemorySettings) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

// ValidateURL checks that raw is an absolute URL.
func ValidateURL(raw string) error {
	if err := validate.Var(raw, "required,url"); err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	return nil
}
