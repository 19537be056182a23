package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "trackhost.yaml"

type Timeouts struct {
	Start time.Duration `yaml:"start"`
	Call  time.Duration `yaml:"call"`
	Reply time.Duration `yaml:"reply"`
}

// FallbackPolicy lists the official providers, in preference order, that the
// enablement governor re-enables when a kind would otherwise have none.
type FallbackPolicy struct {
	Device  []string `yaml:"device"`
	Service []string `yaml:"service"`
}

type Config struct {
	DataDir            string         `yaml:"-"`
	DBPath             string         `yaml:"db_path"`
	PluginRoots        []string       `yaml:"plugin_roots"`
	FilePattern        string         `yaml:"file_pattern"`
	PluginPrefix       string         `yaml:"plugin_prefix"`
	DependencyManifest string         `yaml:"dependency_manifest"`
	HostOwnedFiles     []string       `yaml:"host_owned_files"`
	Fallback           FallbackPolicy `yaml:"fallback"`
	Timeouts           Timeouts       `yaml:"timeouts"`
	TickInterval       time.Duration  `yaml:"tick_interval"`
	CrashHandler       string         `yaml:"crash_handler"`
	LocalizationRoot   string         `yaml:"localization_root"`
	Language           string         `yaml:"language"`
	LogLevel           string         `yaml:"log_level"`
	MetricsAddr        string         `yaml:"metrics_addr"`
}

func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir:            dataDir,
		DBPath:             filepath.Join(dataDir, ".trackhost", "trackhost.db"),
		PluginRoots:        []string{filepath.Join(dataDir, "plugins")},
		FilePattern:        "plugin*",
		PluginPrefix:       "plugin",
		DependencyManifest: "dependencies.yaml",
		HostOwnedFiles: []string{
			"trackhost-contract",
			"trackhost-runtime",
			"trackhost-runtime-bootstrap",
			"trackhost-sdk",
		},
		Fallback: FallbackPolicy{
			Device:  []string{"trackhost.sample.device"},
			Service: []string{"trackhost.sample.service"},
		},
		Timeouts: Timeouts{
			Start: 5 * time.Second,
			Call:  2 * time.Second,
			Reply: 3 * time.Second,
		},
		TickInterval:     33 * time.Millisecond,
		LocalizationRoot: filepath.Join(dataDir, "strings"),
		Language:         "en",
		LogLevel:         "info",
	}, nil
}

// Load returns the defaults for dataDir overlaid with dataDir/trackhost.yaml
// when that file exists. Relative paths in the file resolve against dataDir.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DBPath = absUnder(dataDir, cfg.DBPath)
	for i := range cfg.PluginRoots {
		cfg.PluginRoots[i] = absUnder(dataDir, cfg.PluginRoots[i])
	}
	cfg.LocalizationRoot = absUnder(dataDir, cfg.LocalizationRoot)
	if cfg.CrashHandler != "" {
		cfg.CrashHandler = absUnder(dataDir, cfg.CrashHandler)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.PluginRoots) == 0 {
		return fmt.Errorf("at least one plugin root is required")
	}
	if c.FilePattern == "" {
		return fmt.Errorf("file pattern is required")
	}
	if _, err := filepath.Match(c.FilePattern, ""); err != nil {
		return fmt.Errorf("invalid file pattern %q: %w", c.FilePattern, err)
	}
	if c.PluginPrefix == "" {
		return fmt.Errorf("plugin prefix is required")
	}
	if c.DependencyManifest == "" {
		return fmt.Errorf("dependency manifest name is required")
	}
	if c.Timeouts.Start <= 0 || c.Timeouts.Call <= 0 || c.Timeouts.Reply <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	return nil
}

func absUnder(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(base, path))
}
