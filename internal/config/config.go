package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artlens/orbmatch"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the config file looked up in the working directory.
const DefaultFilename = "artscan.yaml"

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
}

type IndexConfig struct {
	Dir           string  `yaml:"dir"`
	Snapshot      string  `yaml:"snapshot,omitempty"`
	MaxFeatures   int     `yaml:"max_features"`
	Levels        int     `yaml:"levels"`
	ScaleFactor   float64 `yaml:"scale_factor"`
	FastThreshold int     `yaml:"fast_threshold"`
	MaxDimension  int     `yaml:"max_dimension,omitempty"`
	Workers       int     `yaml:"workers,omitempty"`
}

type MatchConfig struct {
	MinScore    float64 `yaml:"min_score"`
	Ratio       float64 `yaml:"ratio"`
	MaxDistance int     `yaml:"max_distance"`
}

type MongoConfig struct {
	URI           string        `yaml:"uri,omitempty"`
	Database      string        `yaml:"database"`
	Collection    string        `yaml:"collection"`
	LogCollection string        `yaml:"log_collection"`
	Timeout       time.Duration `yaml:"timeout"`
}

type CatalogConfig struct {
	File string `yaml:"file,omitempty"`
}

type DescribeConfig struct {
	Provider string        `yaml:"provider,omitempty"`
	APIKey   string        `yaml:"api_key,omitempty"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	Model    string        `yaml:"model,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ScanLogConfig struct {
	// Backend is one of "mongo", "file" or "none".
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Match    MatchConfig    `yaml:"match"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Describe DescribeConfig `yaml:"describe"`
	ScanLog  ScanLogConfig  `yaml:"scan_log"`
	Log      LogConfig      `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			MaxUploadBytes: 20 << 20,
			ScanTimeout:    30 * time.Second,
		},
		Index: IndexConfig{
			Dir:           "data/reference",
			MaxFeatures:   orbmatch.DefaultMaxFeatures,
			Levels:        orbmatch.DefaultLevels,
			ScaleFactor:   orbmatch.DefaultScaleFactor,
			FastThreshold: orbmatch.DefaultFastThreshold,
		},
		Match: MatchConfig{
			MinScore:    orbmatch.DefaultMinScore,
			Ratio:       orbmatch.DefaultRatio,
			MaxDistance: orbmatch.DefaultMaxDistance,
		},
		Mongo: MongoConfig{
			Database:      "museum_db",
			Collection:    "artworks",
			LogCollection: "scan_logs",
			Timeout:       5 * time.Second,
		},
		Describe: DescribeConfig{
			Timeout: 20 * time.Second,
		},
		ScanLog: ScanLogConfig{
			Backend: "none",
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing file
// is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the config as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored, existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"MONGO_URI":       &c.Mongo.URI,
		"DB_NAME":         &c.Mongo.Database,
		"COLLECTION_NAME": &c.Mongo.Collection,
		"REFERENCE_DIR":   &c.Index.Dir,
		"INDEX_SNAPSHOT":  &c.Index.Snapshot,
		"LISTEN_ADDR":     &c.Server.Addr,
		"LLM_PROVIDER":    &c.Describe.Provider,
		"LLM_API_KEY":     &c.Describe.APIKey,
		"LLM_MODEL":       &c.Describe.Model,
		"SCAN_LOG":        &c.ScanLog.Backend,
		"LOG_LEVEL":       &c.Log.Level,
	}
	for name, target := range strs {
		if value, ok := lookup(name); ok && value != "" {
			*target = value
		}
	}

	if value, ok := lookup("MIN_SCORE"); ok && value != "" {
		score, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parse MIN_SCORE: %w", err)
		}
		c.Match.MinScore = score
	}

	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Index.Dir == "" && c.Index.Snapshot == "" {
		return errors.New("index: dir or snapshot required")
	}
	if c.Match.MinScore < 0 || c.Match.MinScore > 1 {
		return fmt.Errorf("match: min_score %v out of [0,1]", c.Match.MinScore)
	}
	switch c.ScanLog.Backend {
	case "none", "":
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("scan_log: mongo backend needs mongo.uri")
		}
	case "file":
		if c.ScanLog.Path == "" {
			return errors.New("scan_log: file backend needs a path")
		}
	default:
		return fmt.Errorf("scan_log: unknown backend %q", c.ScanLog.Backend)
	}
	return nil
}

// MatchOptions returns the extraction and matching options of the config.
func (c *Config) MatchOptions(logger *slog.Logger) orbmatch.Options {
	return orbmatch.Options{
		MaxFeatures:   c.Index.MaxFeatures,
		Levels:        c.Index.Levels,
		ScaleFactor:   c.Index.ScaleFactor,
		FastThreshold: c.Index.FastThreshold,
		MaxDimension:  c.Index.MaxDimension,
		Workers:       c.Index.Workers,
		Ratio:         c.Match.Ratio,
		MaxDistance:   c.Match.MaxDistance,
		Logger:        logger,
	}
}

// NewLogger returns a structured logger writing to w in the configured
// format and level.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Log.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format: unknown %q", c.Log.Format)
	}
}
