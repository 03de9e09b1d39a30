package settings

import (
	"os"
	"path/filepath"
	"testing"
)

// useTempStore points the credential store at a throwaway directory and
// clears the key environment variables for the duration of the test.
func useTempStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv(EnvVar, "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	return dir
}

func TestSetGetRoundTrip(t *testing.T) {
	dir := useTempStore(t)

	if err := SetAPIKey("openai", "sk-secret"); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}
	if got := GetAPIKey("openai"); got != "sk-secret" {
		t.Errorf("GetAPIKey = %q, want sk-secret", got)
	}
	if got := GetAPIKey("google"); got != "" {
		t.Errorf("GetAPIKey(google) = %q, want empty", got)
	}

	// File must be owner-only.
	info, err := os.Stat(filepath.Join(dir, dataDirName, fileName))
	if err != nil {
		t.Fatalf("stat auth file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("auth file perm = %o, want 600", perm)
	}
}

func TestSetBaseURLKeepsKey(t *testing.T) {
	useTempStore(t)

	if err := SetAPIKey("custom-openai", "sk-x"); err != nil {
		t.Fatal(err)
	}
	if err := SetBaseURL("custom-openai", "http://llm.internal/v1"); err != nil {
		t.Fatal(err)
	}

	if got := GetAPIKey("custom-openai"); got != "sk-x" {
		t.Errorf("key = %q, want sk-x", got)
	}
	if got := GetBaseURL("custom-openai"); got != "http://llm.internal/v1" {
		t.Errorf("baseURL = %q", got)
	}
}

func TestRemove(t *testing.T) {
	useTempStore(t)

	if err := SetAPIKey("openai", "a"); err != nil {
		t.Fatal(err)
	}
	if err := SetAPIKey("groq", "b"); err != nil {
		t.Fatal(err)
	}

	if err := Remove("openai"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if GetAPIKey("openai") != "" {
		t.Error("openai key still present after Remove")
	}
	if GetAPIKey("groq") != "b" {
		t.Error("groq key lost by Remove(openai)")
	}

	if err := RemoveAll(); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if len(Load()) != 0 {
		t.Error("store not empty after RemoveAll")
	}
	// Removing again is not an error.
	if err := RemoveAll(); err != nil {
		t.Errorf("second RemoveAll: %v", err)
	}
}

func TestResolveAPIKeyOrder(t *testing.T) {
	useTempStore(t)

	if err := SetAPIKey("openai", "from-store"); err != nil {
		t.Fatal(err)
	}

	if got := ResolveAPIKey("openai", ""); got != "from-store" {
		t.Errorf("store fallback = %q", got)
	}

	t.Setenv("OPENAI_API_KEY", "from-provider-env")
	if got := ResolveAPIKey("openai", ""); got != "from-provider-env" {
		t.Errorf("provider env = %q", got)
	}

	t.Setenv(EnvVar, "from-arbkit-env")
	if got := ResolveAPIKey("openai", ""); got != "from-arbkit-env" {
		t.Errorf("arbkit env = %q", got)
	}

	if got := ResolveAPIKey("openai", "from-flag"); got != "from-flag" {
		t.Errorf("flag = %q", got)
	}
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	dir := useTempStore(t)

	path := filepath.Join(dir, dataDirName, fileName)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}

	if store := Load(); len(store) != 0 {
		t.Errorf("Load of corrupt file = %v, want empty store", store)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "****"},
		{"short", "****"},
		{"sk-abcdefgh1234", "sk-a...1234"},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.in); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
