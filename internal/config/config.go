package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// OCTGN describes the git repository holding the local set definitions.
type OCTGN struct {
	GitURL string `toml:"git_url"`
	Branch string `toml:"branch"`
	GameID string `toml:"game_id"`
}

// HallOfBeorn contains configuration for the remote card catalog.
type HallOfBeorn struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Matching tunes the cross-catalog reconciliation.
type Matching struct {
	// SetDistanceThreshold is the exclusive edit-distance cutoff used when
	// correlating local set names with remote set names.
	SetDistanceThreshold int `toml:"set_distance_threshold"`
	// Workers bounds the number of cards resolved concurrently.
	Workers int `toml:"workers"`
}

// Downloads contains configuration for card image retrieval.
type Downloads struct {
	Concurrency    int `toml:"concurrency"`
	Attempts       int `toml:"attempts"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// CatalogCache contains configuration for the remote response cache.
type CatalogCache struct {
	Enabled  bool   `toml:"enabled"`
	Path     string `toml:"path"`
	TTLHours int    `toml:"ttl_hours"`
}

// Notifications configures ntfy delivery of pack results. An empty topic
// disables notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for octpack.
//
// Configuration sections by subsystem:
//   - Paths: cache, scratch, output, and log directories
//   - OCTGN: git repository with the local set XML files
//   - HallOfBeorn: remote catalog endpoint
//   - Matching: set correlation threshold and resolver parallelism
//   - Downloads: image fetch concurrency and retries
//   - CatalogCache: SQLite cache of remote catalog responses
//   - Notifications: ntfy topic for pack results
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	OCTGN         OCTGN         `toml:"octgn"`
	HallOfBeorn   HallOfBeorn   `toml:"hall_of_beorn"`
	Matching      Matching      `toml:"matching"`
	Downloads     Downloads     `toml:"downloads"`
	CatalogCache  CatalogCache  `toml:"catalog_cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/octpack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	loadDotEnv()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads ./.env when present. Variables already set in the
// environment win.
func loadDotEnv() {
	if info, err := os.Stat(".env"); err != nil || info.IsDir() {
		return
	}
	_ = godotenv.Load(".env")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("octpack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories octpack writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RepositoryDir returns where the OCTGN git repository is cloned.
func (c *Config) RepositoryDir() string {
	return filepath.Join(c.Paths.CacheDir, "git", "octgn")
}

// GitBinary returns the git executable name.
func (c *Config) GitBinary() string {
	return "git"
}

// RemoteTimeout returns the HTTP timeout for catalog requests.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.HallOfBeorn.TimeoutSeconds) * time.Second
}

// DownloadTimeout returns the HTTP timeout for a single image request.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Downloads.TimeoutSeconds) * time.Second
}

// NotificationTimeout returns the HTTP timeout for ntfy requests.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// LogFile returns the run log path, or "" when file logging is off.
func (c *Config) LogFile() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "octpack.log")
}

// CatalogCacheTTL returns how long cached catalog responses stay fresh.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.CatalogCache.TTLHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "octpack")
	}
	return "~/.cache/octpack"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
