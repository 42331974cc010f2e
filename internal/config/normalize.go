package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOCTGN()
	c.normalizeHallOfBeorn()
	c.normalizeMatching()
	c.normalizeDownloads()
	if err := c.normalizeCatalogCache(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOCTGN() {
	c.OCTGN.GitURL = strings.TrimSpace(c.OCTGN.GitURL)
	if value, ok := os.LookupEnv("OCTPACK_OCTGN_GIT_URL"); ok && strings.TrimSpace(value) != "" {
		c.OCTGN.GitURL = strings.TrimSpace(value)
	}
	if c.OCTGN.GitURL == "" {
		c.OCTGN.GitURL = defaultOCTGNGitURL
	}
	c.OCTGN.Branch = strings.TrimSpace(c.OCTGN.Branch)
	if c.OCTGN.Branch == "" {
		c.OCTGN.Branch = defaultOCTGNBranch
	}
	c.OCTGN.GameID = strings.ToLower(strings.TrimSpace(c.OCTGN.GameID))
	if c.OCTGN.GameID == "" {
		c.OCTGN.GameID = defaultOCTGNGameID
	}
}

func (c *Config) normalizeHallOfBeorn() {
	c.HallOfBeorn.BaseURL = strings.TrimSpace(c.HallOfBeorn.BaseURL)
	if value, ok := os.LookupEnv("OCTPACK_HOB_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.HallOfBeorn.BaseURL = strings.TrimSpace(value)
	}
	if c.HallOfBeorn.BaseURL == "" {
		c.HallOfBeorn.BaseURL = defaultHOBBaseURL
	}
	c.HallOfBeorn.BaseURL = strings.TrimRight(c.HallOfBeorn.BaseURL, "/")
	if c.HallOfBeorn.TimeoutSeconds <= 0 {
		c.HallOfBeorn.TimeoutSeconds = defaultHOBTimeoutSeconds
	}
	c.HallOfBeorn.UserAgent = strings.TrimSpace(c.HallOfBeorn.UserAgent)
	if c.HallOfBeorn.UserAgent == "" {
		c.HallOfBeorn.UserAgent = defaultHOBUserAgent
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = defaultMatchingWorkers
	}
}

func (c *Config) normalizeDownloads() {
	if c.Downloads.Concurrency <= 0 {
		c.Downloads.Concurrency = defaultDownloadConcurrency
	}
	if c.Downloads.Attempts <= 0 {
		c.Downloads.Attempts = defaultDownloadAttempts
	}
	if c.Downloads.TimeoutSeconds <= 0 {
		c.Downloads.TimeoutSeconds = defaultDownloadTimeout
	}
}

func (c *Config) normalizeCatalogCache() error {
	var err error
	if strings.TrimSpace(c.CatalogCache.Path) == "" {
		c.CatalogCache.Path = filepath.Join(c.Paths.CacheDir, "catalog.db")
	}
	if c.CatalogCache.Path, err = expandPath(c.CatalogCache.Path); err != nil {
		return fmt.Errorf("catalog_cache.path: %w", err)
	}
	if c.CatalogCache.TTLHours < 0 {
		c.CatalogCache.TTLHours = 0
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("OCTPACK_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
