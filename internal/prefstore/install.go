package prefstore

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// Install extracts the .jpl package at jplPath into PluginsDir()/<name>,
// returning the installation directory. A .jpl is a zip container; no
// third-party archive-container library serves this concern, so the
// stdlib archive/zip reader handles it directly.
//
// If a plugin with the same name is already installed, the manifest
// versions are compared (coerced to a "vX.Y.Z" form so golang.org/x/mod/semver
// can order them, since manifest.json versions are bare dotted-numeric).
// Installing an older or equal version is rejected; installing a newer
// one removes the old installation first.
func (s *Store) Install(jplPath string) (string, error) {
	r, err := zip.OpenReader(jplPath)
	if err != nil {
		return "", errors.Wrapf(err, "prefstore: open %s", jplPath)
	}
	defer r.Close()

	tmpDir, err := os.MkdirTemp(s.pluginsDir, ".install-*")
	if err != nil {
		return "", errors.Wrap(err, "prefstore: create staging dir")
	}
	defer os.RemoveAll(tmpDir)

	if err := extractZip(&r.Reader, tmpDir); err != nil {
		return "", errors.Wrapf(err, "prefstore: extract %s", jplPath)
	}

	incoming, err := readManifest(tmpDir)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(s.pluginsDir, incoming.Name)
	if existing, err := readManifest(destDir); err == nil {
		if compareVersions(incoming.Version, existing.Version) <= 0 {
			return "", errors.Errorf("prefstore: installed version %s of %s is not older than %s", existing.Version, incoming.Name, incoming.Version)
		}
		if err := os.RemoveAll(destDir); err != nil {
			return "", errors.Wrapf(err, "prefstore: remove previous install of %s", incoming.Name)
		}
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return "", errors.Wrap(err, "prefstore: create plugins dir")
	}
	if err := os.Rename(tmpDir, destDir); err != nil {
		return "", errors.Wrapf(err, "prefstore: move staged install to %s", destDir)
	}
	return destDir, nil
}

// Uninstall removes the plugin installed at pluginDir, including its
// preference and value files.
func (s *Store) Uninstall(pluginDir string) error {
	if !strings.HasPrefix(filepath.Clean(pluginDir), filepath.Clean(s.pluginsDir)) {
		return errors.Errorf("prefstore: %s is not under %s", pluginDir, s.pluginsDir)
	}
	if err := os.RemoveAll(pluginDir); err != nil {
		return errors.Wrapf(err, "prefstore: uninstall %s", pluginDir)
	}
	return nil
}

// compareVersions orders two manifest.json "x.y.z" version strings,
// returning a negative/zero/positive int as a<b, a==b, a>b.
func compareVersions(a, b string) int {
	return semver.Compare(toSemver(a), toSemver(b))
}

func toSemver(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func extractZip(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			return errors.Errorf("prefstore: illegal file path in archive: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
