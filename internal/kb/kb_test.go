package kb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeEntry(t *testing.T, root, country, content string) {
	t.Helper()
	dir := filepath.Join(root, country)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create country dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, visaInfoFile), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}
}

func TestLookup(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, "vietnam", `{"visa_types":{"tourist":{"duration":"30 days"}},"fee":"25 USD"}`)

	k, err := New(WithRoot(root))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	facts, err := k.Lookup("Vietnam")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if facts["fee"] != "25 USD" {
		t.Errorf("fee = %v, want 25 USD", facts["fee"])
	}

	// Lookup is case and whitespace insensitive.
	if _, err := k.Lookup("  VIETNAM "); err != nil {
		t.Errorf("Lookup with mixed case failed: %v", err)
	}
}

func TestLookupNotFound(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, "vietnam", `{}`)

	k, err := New(WithRoot(root))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := k.Lookup("atlantis"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(atlantis) error = %v, want ErrNotFound", err)
	}
	if _, err := k.Lookup(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(empty) error = %v, want ErrNotFound", err)
	}
}

func TestLookupMalformedEntry(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, "thailand", `{not json`)

	k, err := New(WithRoot(root))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := k.Lookup("thailand"); !errors.Is(err, ErrNotFound) {
		t.Errorf("malformed entry error = %v, want ErrNotFound", err)
	}
}

func TestCountries(t *testing.T) {
	root := t.TempDir()
	writeEntry(t, root, "vietnam", `{}`)
	writeEntry(t, root, "singapore", `{}`)
	// Directory without a visa_info.json is skipped.
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	k, err := New(WithRoot(root))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	countries, err := k.Countries()
	if err != nil {
		t.Fatalf("Countries failed: %v", err)
	}
	if len(countries) != 2 || countries[0] != "singapore" || countries[1] != "vietnam" {
		t.Errorf("Countries = %v, want [singapore vietnam]", countries)
	}
}

func TestNewValidatesRoot(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("New without root should fail")
	}
	if _, err := New(WithRoot(filepath.Join(t.TempDir(), "missing"))); err == nil {
		t.Fatal("New with missing root should fail")
	}
}

func TestFormatFacts(t *testing.T) {
	if got := FormatFacts(nil); got != "No specific visa information available." {
		t.Errorf("FormatFacts(nil) = %q", got)
	}
	got := FormatFacts(map[string]any{"fee": "25 USD"})
	if !strings.HasPrefix(got, "COMPLETE VISA KNOWLEDGE BASE:") || !strings.Contains(got, "25 USD") {
		t.Errorf("FormatFacts = %q", got)
	}
}
