package prefstore

import (
	"testing"
)

func TestEnsureAlwaysPreferenceIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()

	if err := s.EnsureAlwaysPreference(root, "spamfilter"); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureAlwaysPreference(root, "spamfilter"); err != nil {
		t.Fatal(err)
	}

	prefs, err := s.GetPreferences(root)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, p := range prefs {
		if p["key"] == "spamfilterAlways" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one spamfilterAlways entry, got %d", count)
	}
}

func TestIsAlwaysReflectsSetPreferenceValue(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()

	if err := s.EnsureAlwaysPreference(root, "spamfilter"); err != nil {
		t.Fatal(err)
	}
	if s.IsAlways(root, "spamfilter") {
		t.Fatal("expected always preference to default to off")
	}

	if err := s.SetPreferenceValue(root, "", "spamfilterAlways", "1"); err != nil {
		t.Fatal(err)
	}
	if !s.IsAlways(root, "spamfilter") {
		t.Fatal("expected always preference to report on after being set")
	}
}
