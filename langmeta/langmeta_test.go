package langmeta

import "testing"

func TestIsValid(t *testing.T) {
	valid := []string{"en", "ru", "pt_BR", "pt-br", "zh-Hant", "sr-Latn"}
	for _, code := range valid {
		if !IsValid(code) {
			t.Errorf("IsValid(%q) = false, want true", code)
		}
	}

	invalid := []string{"", "  ", "not a lang", "12345", "und"}
	for _, code := range invalid {
		if IsValid(code) {
			t.Errorf("IsValid(%q) = true, want false", code)
		}
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct{ in, want string }{
		{"pt_br", "pt-BR"},
		{"zh-hant", "zh-Hant"},
		{"EN", "en"},
		{"bogus!", "bogus!"},
	}
	for _, tt := range tests {
		if got := Canonical(tt.in); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	ru := Resolve("ru")
	if ru.Name != "русский" {
		t.Errorf("Resolve(ru).Name = %q", ru.Name)
	}
	if ru.Flag != "🇷🇺" {
		t.Errorf("Resolve(ru).Flag = %q", ru.Flag)
	}

	de := Resolve("de")
	if de.Name != "Deutsch" {
		t.Errorf("Resolve(de).Name = %q", de.Name)
	}

	unknown := Resolve("???")
	if unknown.Name != "???" || unknown.Flag != "" {
		t.Errorf("Resolve(???) = %+v", unknown)
	}
}

func TestName(t *testing.T) {
	if got := Name("fr"); got != "français" {
		t.Errorf("Name(fr) = %q", got)
	}
}
