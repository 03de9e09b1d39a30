package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != nil {
		t.Errorf("cfg = %+v, want nil", cfg)
	}
}

func TestLoadFull(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
arb_dir: lib/l10n
out_dir: build/l10n
source_lang: en
languages: [ru, de]
provider: google
model: gemini-2.5-flash
chunk_size: 25
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ArbDir != filepath.Join(dir, "lib/l10n") {
		t.Errorf("ArbDir = %q", cfg.ArbDir)
	}
	if cfg.OutDir != filepath.Join(dir, "build/l10n") {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}
	if cfg.SourceLang != "en" || cfg.Provider != "google" || cfg.Model != "gemini-2.5-flash" || cfg.ChunkSize != 25 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Languages, []string{"ru", "de"}) {
		t.Errorf("Languages = %v", cfg.Languages)
	}
}

func TestLoadDefaultsArbDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "provider: openai\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ArbDir != dir {
		t.Errorf("ArbDir = %q, want %q", cfg.ArbDir, dir)
	}
	if cfg.OutDir != "" {
		t.Errorf("OutDir = %q, want empty", cfg.OutDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "languages: [ru\n"},
		{"invalid source lang", "source_lang: not a lang\n"},
		{"invalid target lang", "languages: [ru, 'zz!']\n"},
		{"negative chunk size", "chunk_size: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)
			if _, err := Load(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}
