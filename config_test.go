package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dx7.yaml")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("empty path gave %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
	rc := cfg.RenderConfig()
	if rc.KeyOn != 2*time.Second || rc.MinNote != 60 || rc.MaxNote != 108 || rc.Increment != 3 {
		t.Errorf("RenderConfig = %+v", rc)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
key_on_duration_ms: 500
min_midi_note: 36
format: sfz
midi:
  channel: 5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.KeyOn() != 500*time.Millisecond || cfg.MinNote != 36 || cfg.Format != FormatSFZ || cfg.MIDI.Channel != 5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	def := DefaultConfig()
	if cfg.MaxNote != def.MaxNote || cfg.NoteIncrement != def.NoteIncrement || cfg.MIDI.Port != def.MIDI.Port {
		t.Errorf("missing keys lost their defaults: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]string{
		"zero key-on":    "key_on_duration_ms: 0\n",
		"inverted range": "min_midi_note: 100\nmax_midi_note: 60\n",
		"zero increment": "note_increment: 0\n",
		"bad format":     "format: aiff\n",
		"bad channel":    "midi:\n  channel: 17\n",
		"not yaml":       "key_on_duration_ms: [1, 2\n",
		"wrong type":     "min_midi_note: middle\n",
	}
	for name, text := range tests {
		if _, err := LoadConfig(writeConfig(t, text)); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: got %v, want ErrConfig", name, err)
		}
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("missing file: got %v", err)
	}

	cfg := DefaultConfig()
	cfg.MaxNote = 128
	if err := cfg.Validate(); !errors.Is(err, ErrRange) {
		t.Errorf("max note 128: got %v", err)
	}
}

func TestHugeNoteIncrementKeepsEndpoints(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoteIncrement = math.MaxInt
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	rc := cfg.RenderConfig()
	notes, err := SampleNotes(rc.MinNote, rc.MaxNote, rc.Increment)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 || notes[0] != 60 || notes[1] != 108 {
		t.Errorf("notes = %v, want [60 108]", notes)
	}
}
