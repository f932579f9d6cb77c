package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artlens/orbmatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, orbmatch.DefaultMinScore, cfg.Match.MinScore)
	assert.Equal(t, orbmatch.DefaultMaxFeatures, cfg.Index.MaxFeatures)
	assert.Equal(t, "data/reference", cfg.Index.Dir)
	assert.Equal(t, "museum_db", cfg.Mongo.Database)
	assert.Equal(t, "artworks", cfg.Mongo.Collection)
	assert.Equal(t, "none", cfg.ScanLog.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFilename))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)

	cfg := DefaultConfig()
	cfg.Index.Dir = "/srv/paintings"
	cfg.Match.MinScore = 0.1
	cfg.Server.ScanTimeout = 3 * time.Second
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte("match:\n  min_score: 0.2\nlog:\n  format: json\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Match.MinScore)
	assert.Equal(t, orbmatch.DefaultRatio, cfg.Match.Ratio)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte("{{invalid yaml:::"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MONGO_URI":     "mongodb://db:27017",
		"REFERENCE_DIR": "/refs",
		"MIN_SCORE":     "0.07",
		"LISTEN_ADDR":   "",
	}
	lookup := func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "/refs", cfg.Index.Dir)
	assert.Equal(t, 0.07, cfg.Match.MinScore)
	assert.Equal(t, ":8000", cfg.Server.Addr)

	env["MIN_SCORE"] = "high"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ARTSCAN_TEST_VALUE=from-dotenv\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("ARTSCAN_TEST_VALUE") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-dotenv", os.Getenv("ARTSCAN_TEST_VALUE"))
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"no index":    func(c *Config) { c.Index.Dir = "" },
		"score":       func(c *Config) { c.Match.MinScore = 2 },
		"mongo log":   func(c *Config) { c.ScanLog.Backend = "mongo" },
		"file log":    func(c *Config) { c.ScanLog.Backend = "file" },
		"unknown log": func(c *Config) { c.ScanLog.Backend = "kafka" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}

	cfg := DefaultConfig()
	cfg.Index.Dir = ""
	cfg.Index.Snapshot = "index.gob.gz"
	assert.NoError(t, cfg.Validate())
}

func TestMatchOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Match.Ratio = 0.8
	cfg.Index.MaxFeatures = 500

	options := cfg.MatchOptions(nil)
	assert.Equal(t, 0.8, options.Ratio)
	assert.Equal(t, 500, options.MaxFeatures)
}

func TestNewLogger(t *testing.T) {
	var buffer bytes.Buffer
	cfg := DefaultConfig()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger, err := cfg.NewLogger(&buffer)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "label", "the_scream")
	assert.NotContains(t, buffer.String(), "hidden")
	assert.Contains(t, buffer.String(), `"label":"the_scream"`)

	cfg.Log.Format = "xml"
	_, err = cfg.NewLogger(&buffer)
	assert.Error(t, err)

	cfg.Log.Format = "text"
	cfg.Log.Level = "loud"
	_, err = cfg.NewLogger(&buffer)
	assert.Error(t, err)
}
