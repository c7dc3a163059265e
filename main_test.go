package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestLoadBankVoice(t *testing.T) {
	voices, data := testBank(t)
	path := filepath.Join(t.TempDir(), "bank.syx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	v, index, err := loadBankVoice(path, "9")
	if err != nil {
		t.Fatalf("loadBankVoice: %v", err)
	}
	if index != 9 || v.Name != voices[9].Name {
		t.Errorf("got voice %d %q", index, v.Name)
	}

	for _, patch := range []string{"32", "-1", "nine"} {
		if _, _, err := loadBankVoice(path, patch); !errors.Is(err, ErrIndex) {
			t.Errorf("patch %q: got %v, want ErrIndex", patch, err)
		}
	}
}

func TestGenerateInstrument(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeyOnDurationMs = 20
	cfg.MinNote, cfg.MaxNote, cfg.NoteIncrement = 60, 66, 3
	cfg.OutputDir = t.TempDir()
	cfg.Format = FormatJSON

	inst, err := generateInstrument(context.Background(), InitVoice(), cfg)
	if err != nil {
		t.Fatalf("generateInstrument: %v", err)
	}
	if len(inst.Samples) != 3 {
		t.Errorf("wrote %d samples, want 3", len(inst.Samples))
	}
	if inst.Descriptor != filepath.Join(cfg.OutputDir, "INIT-VOICE.json") {
		t.Errorf("descriptor %s", inst.Descriptor)
	}
	for _, p := range append(inst.Samples, inst.Descriptor) {
		if _, err := os.Stat(p); err != nil {
			t.Error(err)
		}
	}
}

func TestGenerateInstrumentRenderFailureWritesNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeyOnDurationMs = 20
	cfg.OutputDir = t.TempDir()

	v := InitVoice()
	v.Algorithm = 40
	if _, err := generateInstrument(context.Background(), v, cfg); !errors.Is(err, ErrRange) {
		t.Fatalf("got %v, want ErrRange", err)
	}
	if entries, _ := os.ReadDir(cfg.OutputDir); len(entries) != 0 {
		t.Errorf("failed render left %d files", len(entries))
	}
}

func TestListCommand(t *testing.T) {
	voices, data := testBank(t)
	path := filepath.Join(t.TempDir(), "bank.syx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"list", path})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("list: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != BankVoices {
		t.Fatalf("list printed %d lines, want %d:\n%s", len(lines), BankVoices, out.String())
	}
	if lines[9] != "9: SYN.HARMO." {
		t.Errorf("line 9 = %q", lines[9])
	}
	if want := "0: " + voices[0].Name; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
}
