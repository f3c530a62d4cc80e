package prefstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, name, version string, so map[string]string) {
	t.Helper()
	m := Manifest{Name: name, Version: version, SharedLibs: so}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadManifestRoundTrips(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "echoplugin", "1.2.0", map[string]string{"x86_64-linux-gnu": "lib/linux/libecho.so"})

	m, err := readManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "echoplugin" || m.Version != "1.2.0" {
		t.Fatalf("got %+v", m)
	}

	path, err := m.SharedLibraryPath(dir, "x86_64-linux-gnu")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "lib/linux/libecho.so") {
		t.Fatalf("got %s", path)
	}
}

func TestSharedLibraryPathMissingABI(t *testing.T) {
	m := Manifest{Name: "echoplugin", SharedLibs: map[string]string{"arm64-v8a": "lib/arm/libecho.so"}}
	if _, err := m.SharedLibraryPath("/plugins/echoplugin", "x86_64-linux-gnu"); err == nil {
		t.Fatal("expected error for unsupported ABI")
	}
}

func TestReadManifestMissingNameFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"version":"1.0.0"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readManifest(dir); err == nil {
		t.Fatal("expected error for missing name")
	}
}
