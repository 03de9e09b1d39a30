// Package arbfile implements reading, merging, and writing of Flutter ARB
// (Application Resource Bundle) files.
//
// ARB files are JSON files with a specific structure:
//
//   - "@@locale" holds the BCP-47 language code (e.g. "en", "ru").
//   - Keys starting with "@" (other than "@@locale") are metadata entries
//     (e.g. "@greeting") and are preserved verbatim — never translated.
//   - All other string values are translatable.
//
// File naming convention: app_LANG.arb (e.g. app_en.arb, app_ru.arb) stored
// in a single directory (e.g. lib/l10n/).
//
// Round-trip fidelity: key order from the source file is preserved, new keys
// are appended in arrival order, and repeated load/write cycles produce
// byte-identical output.
package arbfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l10n-tools/arbkit/langmeta"
)

// Entry is a single translatable key/value pair.
type Entry struct {
	Key   string
	Value string
}

// entry is a single key in the ARB document, metadata included.
type entry struct {
	key      string
	value    string // decoded string value (empty for metadata)
	isMeta   bool   // true for @-keys (metadata / @@locale)
	rawValue []byte // original JSON value bytes (preserved for meta)
}

// File represents a parsed ARB file.
type File struct {
	// locale is the value of @@locale.
	locale string
	// entries stores all keys in document order.
	entries []entry
	// index maps key → index in entries.
	index map[string]int
}

// ---------------------------------------------------------------------------
// Construction and parsing
// ---------------------------------------------------------------------------

// New returns an empty File for the given locale.
func New(locale string) *File {
	return &File{locale: locale, index: make(map[string]int)}
}

// ParseFile reads and parses an ARB file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// LoadOrEmpty parses the ARB file at path, or returns an empty File for
// locale when the file does not exist. Any other read or parse error is
// reported as-is: a present-but-malformed file must not be silently
// treated as an empty mapping.
func LoadOrEmpty(path, locale string) (*File, error) {
	f, err := ParseFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(locale), nil
		}
		return nil, err
	}
	if f.locale == "" {
		f.locale = locale
	}
	return f, nil
}

// Parse parses ARB content from a byte slice, preserving key order by
// decoding with json.Decoder token streaming.
func Parse(data []byte) (*File, error) {
	f := &File{index: make(map[string]int)}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing ARB: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("parsing ARB: expected '{', got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing ARB key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("parsing ARB: expected string key, got %T", keyTok)
		}

		var rawVal json.RawMessage
		if err := dec.Decode(&rawVal); err != nil {
			return nil, fmt.Errorf("parsing ARB value for %q: %w", key, err)
		}

		isMeta := strings.HasPrefix(key, "@")

		if key == "@@locale" {
			var s string
			_ = json.Unmarshal(rawVal, &s)
			f.locale = s
		}

		e := entry{
			key:      key,
			isMeta:   isMeta,
			rawValue: rawVal,
		}
		if !isMeta {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				return nil, fmt.Errorf("parsing ARB: value for %q is not a string", key)
			}
			e.value = s
		}
		f.index[key] = len(f.entries)
		f.entries = append(f.entries, e)
	}

	return f, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Locale returns the @@locale value.
func (f *File) Locale() string { return f.locale }

// Keys returns all translatable (non-metadata) keys in document order.
func (f *File) Keys() []string {
	var keys []string
	for _, e := range f.entries {
		if !e.isMeta {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// UntranslatedKeys returns translatable keys whose value is empty.
func (f *File) UntranslatedKeys() []string {
	var keys []string
	for _, e := range f.entries {
		if !e.isMeta && e.value == "" {
			keys = append(keys, e.key)
		}
	}
	return keys
}

// Get returns the string value for a translatable key.
func (f *File) Get(key string) (string, bool) {
	if idx, ok := f.index[key]; ok && !f.entries[idx].isMeta {
		return f.entries[idx].value, true
	}
	return "", false
}

// Set sets the value of an existing translatable key.
// Returns false if the key is not found or is metadata.
func (f *File) Set(key, value string) bool {
	idx, ok := f.index[key]
	if !ok || f.entries[idx].isMeta {
		return false
	}
	f.entries[idx].value = value
	raw, _ := json.Marshal(value)
	f.entries[idx].rawValue = raw
	return true
}

// Put updates an existing translatable key or appends a new one at the end.
// Metadata keys are never touched.
func (f *File) Put(key, value string) {
	if strings.HasPrefix(key, "@") {
		return
	}
	if f.Set(key, value) {
		return
	}
	raw, _ := json.Marshal(value)
	f.index[key] = len(f.entries)
	f.entries = append(f.entries, entry{key: key, value: value, rawValue: raw})
}

// Overlay applies pairs in order: existing keys are updated in place, new
// keys are appended preserving the order they arrive in.
func (f *File) Overlay(pairs []Entry) {
	for _, p := range pairs {
		f.Put(p.Key, p.Value)
	}
}

// Entries returns all translatable key/value pairs in document order.
func (f *File) Entries() []Entry {
	var pairs []Entry
	for _, e := range f.entries {
		if !e.isMeta {
			pairs = append(pairs, Entry{Key: e.key, Value: e.value})
		}
	}
	return pairs
}

// Stats returns (total, translated, percentTranslated).
func (f *File) Stats() (int, int, float64) {
	total, translated := 0, 0
	for _, e := range f.entries {
		if !e.isMeta {
			total++
			if e.value != "" {
				translated++
			}
		}
	}
	pct := 0.0
	if total > 0 {
		pct = float64(translated) / float64(total) * 100
	}
	return total, translated, pct
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Marshal serialises the ARB file to JSON with 2-space indentation.
// The @@locale key is always written first.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")

	wrote := false
	if f.locale != "" {
		raw, _ := json.Marshal(f.locale)
		buf.WriteString("  \"@@locale\": ")
		buf.Write(raw)
		wrote = true
	}

	for _, e := range f.entries {
		if e.key == "@@locale" {
			continue // already written
		}
		if wrote {
			buf.WriteString(",\n")
		}
		keyBytes, _ := json.Marshal(e.key)
		buf.WriteString("  ")
		buf.Write(keyBytes)
		buf.WriteString(": ")
		if e.isMeta {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, e.rawValue, "  ", "  "); err != nil {
				buf.Write(e.rawValue)
			} else {
				buf.Write(pretty.Bytes())
			}
		} else {
			raw, _ := json.Marshal(e.value)
			buf.Write(raw)
		}
		wrote = true
	}

	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}

// WriteFile serialises and writes to path.
func (f *File) WriteFile(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Directory layout
// ---------------------------------------------------------------------------

const (
	filePrefix = "app_"
	fileExt    = ".arb"
)

// FileName returns the conventional file name for a language code.
func FileName(code string) string {
	return filePrefix + code + fileExt
}

// PathFor returns the conventional file path for a language code under dir.
func PathFor(dir, code string) string {
	return filepath.Join(dir, FileName(code))
}

// Discover scans dir for app_<code>.arb files and returns the sorted set of
// language codes found. File names whose embedded code is not a valid
// language tag are skipped. A missing or unreadable directory is an error.
func Discover(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var codes []string
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
		if code == "" || !langmeta.IsValid(code) {
			continue
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
