package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsEmptyPreferences(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.LastAddress != "" || len(p.Nicknames) != 0 {
		t.Fatalf("Load = %+v, want empty", p)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vivctl", "preferences.yaml")

	p := &Preferences{LastAddress: "AA:BB:CC:DD:EE:FF"}
	p.SetNickname("AA:BB:CC:DD:EE:FF", "kitchen monitor")

	if err := Save(path, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.LastAddress != p.LastAddress {
		t.Fatalf("LastAddress = %q, want %q", got.LastAddress, p.LastAddress)
	}
	if got.Nickname("AA:BB:CC:DD:EE:FF") != "kitchen monitor" {
		t.Fatalf("Nickname = %q, want %q", got.Nickname("AA:BB:CC:DD:EE:FF"), "kitchen monitor")
	}
}

func TestNicknameFallsBackToAddress(t *testing.T) {
	p := &Preferences{Nicknames: map[string]string{}}
	if got := p.Nickname("11:22:33:44:55:66"); got != "11:22:33:44:55:66" {
		t.Fatalf("Nickname fallback = %q", got)
	}
}
