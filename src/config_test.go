package readnotes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfigOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Server.Addr)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readnotes.yaml")
	yaml := "export:\n  font_dir: /usr/share/fonts/reader\n  prefetch: 4\n  image_timeout: 5s\nserver:\n  addr: 127.0.0.1:9000\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/share/fonts/reader", cfg.Export.FontDir)
	assert.Equal(t, 4, cfg.Export.Prefetch)
	assert.Equal(t, 5*time.Second, cfg.Export.ImageTimeout)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "assets", cfg.Export.AssetDir)
	assert.Equal(t, time.Minute, cfg.Server.RateWindow)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("export: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parsing config")
	_, err = LoadConfigOrDefault(path)
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("READNOTES_ADDR", ":9999")
	t.Setenv("READNOTES_OUTPUT_DIR", "/tmp/pdfs")
	t.Setenv("READNOTES_IMAGE_TIMEOUT", "3s")
	t.Setenv("READNOTES_PREFETCH", "8")

	cfg, err := LoadConfigOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/tmp/pdfs", cfg.Export.OutputDir)
	assert.Equal(t, 3*time.Second, cfg.Export.ImageTimeout)
	assert.Equal(t, 8, cfg.Export.Prefetch)

	t.Setenv("READNOTES_PREFETCH", "many")
	_, err = LoadConfigOrDefault("")
	assert.ErrorContains(t, err, "READNOTES_PREFETCH")
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "readnotes.yaml")
	cfg := DefaultConfig()
	cfg.Server.TLS = true
	cfg.Export.Prefetch = 2
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
