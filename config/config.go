// Package config — .arbkit.yaml configuration file support.
//
// When a .arbkit.yaml file exists in the input directory, it supplies
// defaults for the translate command. Command-line flags always override
// values from the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/l10n-tools/arbkit/langmeta"
)

// FileName is the config file name looked up in the input directory.
const FileName = ".arbkit.yaml"

// File is the top-level .arbkit.yaml structure.
type File struct {
	// ArbDir is the directory with app_<lang>.arb files, relative to the
	// config file (default ".").
	ArbDir string `yaml:"arb_dir,omitempty"`
	// OutDir is the output directory (default: ArbDir).
	OutDir string `yaml:"out_dir,omitempty"`
	// SourceLang is the base language code (default "en").
	SourceLang string `yaml:"source_lang,omitempty"`
	// Languages is an explicit target language list. When empty, targets
	// are discovered from existing .arb files.
	Languages []string `yaml:"languages,omitempty"`
	// Provider is the default AI provider ID.
	Provider string `yaml:"provider,omitempty"`
	// Model is the default model name.
	Model string `yaml:"model,omitempty"`
	// Prompt overrides the system prompt ({{targetLang}} placeholder).
	Prompt string `yaml:"prompt,omitempty"`
	// ChunkSize is keys per API request (0 = all at once).
	ChunkSize int `yaml:"chunk_size,omitempty"`
}

// Load reads and validates .arbkit.yaml from dir.
// Returns nil (and no error) if the file does not exist.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if f.SourceLang != "" && !langmeta.IsValid(f.SourceLang) {
		return nil, fmt.Errorf("%s: invalid source_lang %q", path, f.SourceLang)
	}
	for _, lang := range f.Languages {
		if !langmeta.IsValid(lang) {
			return nil, fmt.Errorf("%s: invalid language %q", path, lang)
		}
	}
	if f.ChunkSize < 0 {
		return nil, fmt.Errorf("%s: chunk_size must be >= 0", path)
	}

	// Resolve directories relative to the config file location.
	if f.ArbDir == "" {
		f.ArbDir = "."
	}
	if !filepath.IsAbs(f.ArbDir) {
		f.ArbDir = filepath.Join(dir, f.ArbDir)
	}
	if f.OutDir != "" && !filepath.IsAbs(f.OutDir) {
		f.OutDir = filepath.Join(dir, f.OutDir)
	}

	return &f, nil
}
