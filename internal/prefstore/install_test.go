package prefstore

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func buildJPL(t *testing.T, path, name, version string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	manifest, err := w.Create("manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	manifest.Write([]byte(`{"name":"` + name + `","version":"` + version + `","so":{"x86_64-linux-gnu":"lib/libplugin.so"}}`))

	lib, err := w.Create("lib/libplugin.so")
	if err != nil {
		t.Fatal(err)
	}
	lib.Write([]byte("not-really-a-shared-library"))

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dataDir := t.TempDir()
	s := New(dataDir)
	if err := os.MkdirAll(s.PluginsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestInstallExtractsAndReturnsDestDir(t *testing.T) {
	s := newTestStore(t)
	pkg := filepath.Join(t.TempDir(), "echo.jpl")
	buildJPL(t, pkg, "echoplugin", "1.0.0")

	dest, err := s.Install(pkg)
	if err != nil {
		t.Fatal(err)
	}
	if dest != filepath.Join(s.PluginsDir(), "echoplugin") {
		t.Fatalf("got %s", dest)
	}
	if _, err := os.Stat(filepath.Join(dest, "lib/libplugin.so")); err != nil {
		t.Fatalf("expected extracted shared library: %v", err)
	}
}

func TestInstallRejectsNonNewerVersion(t *testing.T) {
	s := newTestStore(t)
	pkgV2 := filepath.Join(t.TempDir(), "echo-2.jpl")
	buildJPL(t, pkgV2, "echoplugin", "2.0.0")
	if _, err := s.Install(pkgV2); err != nil {
		t.Fatal(err)
	}

	pkgV1 := filepath.Join(t.TempDir(), "echo-1.jpl")
	buildJPL(t, pkgV1, "echoplugin", "1.0.0")
	if _, err := s.Install(pkgV1); err == nil {
		t.Fatal("expected older version install to be rejected")
	}

	pkgSame := filepath.Join(t.TempDir(), "echo-same.jpl")
	buildJPL(t, pkgSame, "echoplugin", "2.0.0")
	if _, err := s.Install(pkgSame); err == nil {
		t.Fatal("expected equal version install to be rejected")
	}
}

func TestInstallReplacesOlderVersion(t *testing.T) {
	s := newTestStore(t)
	pkgV1 := filepath.Join(t.TempDir(), "echo-1.jpl")
	buildJPL(t, pkgV1, "echoplugin", "1.0.0")
	if _, err := s.Install(pkgV1); err != nil {
		t.Fatal(err)
	}

	pkgV2 := filepath.Join(t.TempDir(), "echo-2.jpl")
	buildJPL(t, pkgV2, "echoplugin", "2.1.0")
	dest, err := s.Install(pkgV2)
	if err != nil {
		t.Fatal(err)
	}
	m, err := readManifest(dest)
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != "2.1.0" {
		t.Fatalf("got version %s, want replaced install at 2.1.0", m.Version)
	}
}

func TestUninstallRejectsPathOutsidePluginsDir(t *testing.T) {
	s := newTestStore(t)
	if err := s.Uninstall("/etc/passwd"); err == nil {
		t.Fatal("expected uninstall outside pluginsDir to be rejected")
	}
}

func TestUninstallRemovesDirectory(t *testing.T) {
	s := newTestStore(t)
	pkg := filepath.Join(t.TempDir(), "echo.jpl")
	buildJPL(t, pkg, "echoplugin", "1.0.0")
	dest, err := s.Install(pkg)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Uninstall(dest); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed", dest)
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.2.3", "1.2.3", 0},
		{"v1.0.0", "1.0.0", 0},
	}
	for _, c := range cases {
		if got := compareVersions(c.a, c.b); sign(got) != c.want {
			t.Errorf("compareVersions(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
