package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DETECTOR_URL", "")
	t.Setenv("DETECTOR_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_IMAGE_PIXELS", "")
	t.Setenv("MAX_WORKSPACES", "")

	cfg, err := Load()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Port, test.ShouldEqual, 8080)
	test.That(t, cfg.DetectorURL, test.ShouldEqual, "http://localhost:5000")
	test.That(t, cfg.DetectorTimeout, test.ShouldEqual, 30*time.Second)
	test.That(t, cfg.MaxDisplayWidth, test.ShouldEqual, 800)
	test.That(t, cfg.MaxDisplayHeight, test.ShouldEqual, 600)
	test.That(t, cfg.MaxUploadBytes(), test.ShouldEqual, int64(250*1024*1024))
	test.That(t, cfg.AllowedOrigins, test.ShouldResemble, []string{"*"})
	test.That(t, cfg.MaxImagePixels, test.ShouldEqual, 40_000_000)
	test.That(t, cfg.MaxWorkspaces, test.ShouldEqual, 64)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("DETECTOR_URL", "http://detector:5000/")
	t.Setenv("DETECTOR_TIMEOUT", "45")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Port, test.ShouldEqual, 9090)
	test.That(t, cfg.DetectorURL, test.ShouldEqual, "http://detector:5000")
	test.That(t, cfg.DetectorTimeout, test.ShouldEqual, 45*time.Second)
	test.That(t, cfg.AllowedOrigins, test.ShouldResemble, []string{"http://a.example", "http://b.example"})

	t.Setenv("DETECTOR_TIMEOUT", "1m30s")
	t.Setenv("PORT", "not-a-number")
	cfg, err = Load()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DetectorTimeout, test.ShouldEqual, 90*time.Second)
	test.That(t, cfg.Port, test.ShouldEqual, 8080)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "potholewatch.yaml")
	body := "port: 7000\ndetector_timeout: 5s\nmap_width: 1024\nmax_image_pixels: 1000000\nallowed_origins: [\"http://ops.example\"]\n"
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)

	t.Setenv("PORT", "9090")
	t.Setenv("DETECTOR_TIMEOUT", "")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Port, test.ShouldEqual, 7000)
	test.That(t, cfg.DetectorTimeout, test.ShouldEqual, 5*time.Second)
	test.That(t, cfg.MapWidth, test.ShouldEqual, 1024)
	test.That(t, cfg.MapHeight, test.ShouldEqual, 500)
	test.That(t, cfg.MaxImagePixels, test.ShouldEqual, 1000000)
	test.That(t, cfg.AllowedOrigins, test.ShouldResemble, []string{"http://ops.example"})
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	test.That(t, os.WriteFile(path, []byte("port: [1, 2"), 0o644), test.ShouldBeNil)
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	test.That(t, err, test.ShouldNotBeNil)

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	test.That(t, err, test.ShouldNotBeNil)
}
