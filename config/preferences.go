// Package config persists the small set of user preferences vivctl
// needs between runs: which device to reconnect to by default, and
// what nickname to show for it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preferences is the YAML-serialized on-disk preferences document.
type Preferences struct {
	LastAddress string            `yaml:"last_address,omitempty"`
	Nicknames   map[string]string `yaml:"nicknames,omitempty"`
}

// DefaultPath returns ~/.config/vivctl/preferences.yaml, creating
// neither the directory nor the file.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "vivctl", "preferences.yaml"), nil
}

// Load reads and parses the preferences file at path. A missing file
// is not an error: it yields an empty Preferences ready to be filled
// in and saved.
func Load(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Preferences{Nicknames: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var p Preferences
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if p.Nicknames == nil {
		p.Nicknames = map[string]string{}
	}
	return &p, nil
}

// Save writes p to path, creating its parent directory if needed.
func Save(path string, p *Preferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config: marshaling preferences: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Nickname returns the saved nickname for addr, or addr itself if
// none has been set.
func (p *Preferences) Nickname(addr string) string {
	if name, ok := p.Nicknames[addr]; ok && name != "" {
		return name
	}
	return addr
}

// SetNickname records a nickname for addr, overwriting any prior
// value.
func (p *Preferences) SetNickname(addr, name string) {
	if p.Nicknames == nil {
		p.Nicknames = map[string]string{}
	}
	p.Nicknames[addr] = name
}
