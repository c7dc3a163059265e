package main

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the CLI and the MCP tools. Keys
// missing from a YAML file keep their defaults.
type Config struct {
	KeyOnDurationMs int    `yaml:"key_on_duration_ms"`
	MinNote         int    `yaml:"min_midi_note"`
	MaxNote         int    `yaml:"max_midi_note"`
	NoteIncrement   int    `yaml:"note_increment"`
	OutputDir       string `yaml:"output_dir"`
	Format          string `yaml:"format"`
	Workers         int    `yaml:"workers"`

	MIDI MIDIConfig `yaml:"midi"`
}

// MIDIConfig selects the hardware used by send.
type MIDIConfig struct {
	Port    string `yaml:"port"`
	Channel int    `yaml:"channel"` // 1..16
}

func DefaultConfig() Config {
	return Config{
		KeyOnDurationMs: 2000,
		MinNote:         60,
		MaxNote:         108,
		NoteIncrement:   3,
		OutputDir:       ".",
		Format:          FormatElmulti,
		MIDI:            MIDIConfig{Port: "dx7", Channel: 1},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(ErrConfig, "parsing %s: %v", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.KeyOnDurationMs <= 0 {
		return errors.Wrapf(ErrConfig, "key-on duration %d ms must be positive", c.KeyOnDurationMs)
	}
	if _, err := SampleNotes(c.MinNote, c.MaxNote, c.NoteIncrement); err != nil {
		return err
	}
	if err := validFormat(c.Format); err != nil {
		return err
	}
	if c.MIDI.Channel < 1 || c.MIDI.Channel > 16 {
		return errors.Wrapf(ErrConfig, "MIDI channel %d not in 1..16", c.MIDI.Channel)
	}
	return nil
}

func (c Config) KeyOn() time.Duration {
	return time.Duration(c.KeyOnDurationMs) * time.Millisecond
}

func (c Config) RenderConfig() RenderConfig {
	return RenderConfig{
		KeyOn:     c.KeyOn(),
		MinNote:   c.MinNote,
		MaxNote:   c.MaxNote,
		Increment: c.NoteIncrement,
		Workers:   c.Workers,
	}
}
