package arbfile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleARB = `{
  "@@locale": "en",
  "greeting": "Hello",
  "@greeting": {
    "description": "Shown on the home screen"
  },
  "farewell": "Goodbye",
  "itemCount": "{count} items"
}
`

func TestParsePreservesOrder(t *testing.T) {
	f, err := Parse([]byte(sampleARB))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if f.Locale() != "en" {
		t.Errorf("Locale = %q, want en", f.Locale())
	}

	want := []string{"greeting", "farewell", "itemCount"}
	if got := f.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}
}

func TestParseRejectsNonStringValue(t *testing.T) {
	_, err := Parse([]byte(`{"@@locale": "en", "count": 42}`))
	if err == nil {
		t.Fatal("expected error for non-string translatable value")
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"greeting": "Hello",}`))
	if err == nil {
		t.Fatal("expected error for trailing comma")
	}
}

func TestOverlayPrecedenceAndOrder(t *testing.T) {
	f, err := Parse([]byte(`{"@@locale": "en", "a": "1", "b": "2"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Overlay wins for existing keys, new keys append at the end.
	f.Overlay([]Entry{{Key: "a", Value: "9"}, {Key: "c", Value: "3"}})

	want := []Entry{{"a", "9"}, {"b", "2"}, {"c", "3"}}
	if got := f.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries = %v, want %v", got, want)
	}
}

func TestOverlaySkipsMetadataKeys(t *testing.T) {
	f := New("en")
	f.Overlay([]Entry{{Key: "@greeting", Value: "nope"}, {Key: "greeting", Value: "Hello"}})

	if got := f.Keys(); !reflect.DeepEqual(got, []string{"greeting"}) {
		t.Errorf("Keys = %v, want [greeting]", got)
	}
}

func TestMarshalLocaleFirstAndRoundTrip(t *testing.T) {
	f, err := Parse([]byte(sampleARB))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	out, err := f.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if got := string(out); got != sampleARB {
		t.Errorf("round trip mismatch:\ngot:\n%s\nwant:\n%s", got, sampleARB)
	}

	// A second cycle must be byte-identical.
	f2, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	out2, err := f2.Marshal()
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if string(out2) != string(out) {
		t.Error("second marshal cycle is not byte-identical")
	}
}

func TestWriteBackPreservesUnrelatedKeys(t *testing.T) {
	f, err := Parse([]byte(`{
  "@@locale": "ru",
  "x": "old",
  "y": "keep"
}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	f.Overlay([]Entry{{Key: "x", Value: "new"}})

	if v, _ := f.Get("x"); v != "new" {
		t.Errorf("x = %q, want new", v)
	}
	if v, _ := f.Get("y"); v != "keep" {
		t.Errorf("y = %q, want keep", v)
	}
}

func TestLoadOrEmpty(t *testing.T) {
	dir := t.TempDir()

	// Missing file yields an empty File with the requested locale.
	f, err := LoadOrEmpty(filepath.Join(dir, "app_de.arb"), "de")
	if err != nil {
		t.Fatalf("LoadOrEmpty missing: %v", err)
	}
	if f.Locale() != "de" || len(f.Keys()) != 0 {
		t.Errorf("got locale %q with %d keys, want empty de", f.Locale(), len(f.Keys()))
	}

	// A present but malformed file is an error, not an empty mapping.
	bad := filepath.Join(dir, "app_fr.arb")
	if err := os.WriteFile(bad, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOrEmpty(bad, "fr"); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestWriteFileAndReload(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "en")

	f := New("en")
	f.Put("greeting", "Hello")
	f.Put("farewell", "Goodbye")
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if got.Locale() != "en" {
		t.Errorf("Locale = %q, want en", got.Locale())
	}
	want := []Entry{{"greeting", "Hello"}, {"farewell", "Goodbye"}}
	if !reflect.DeepEqual(got.Entries(), want) {
		t.Errorf("Entries = %v, want %v", got.Entries(), want)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"app_en.arb", "app_fr.arb", "app_es.arb", "app_.arb", "app_qqzz9.arb", "notes.txt", "other_en.arb"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	codes, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"en", "es", "fr"}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("Discover = %v, want %v", codes, want)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestStats(t *testing.T) {
	f, err := Parse([]byte(`{"@@locale": "ru", "a": "x", "b": "", "c": "y"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	total, translated, pct := f.Stats()
	if total != 3 || translated != 2 {
		t.Errorf("Stats = (%d, %d), want (3, 2)", total, translated)
	}
	if pct < 66 || pct > 67 {
		t.Errorf("pct = %f, want ~66.7", pct)
	}

	if got := f.UntranslatedKeys(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("UntranslatedKeys = %v, want [b]", got)
	}
}
