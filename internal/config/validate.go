package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOCTGN(); err != nil {
		return err
	}
	if err := c.validateHallOfBeorn(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"downloads.concurrency":     c.Downloads.Concurrency,
		"downloads.attempts":        c.Downloads.Attempts,
		"downloads.timeout_seconds": c.Downloads.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateOCTGN() error {
	if strings.TrimSpace(c.OCTGN.GitURL) == "" {
		return errors.New("octgn.git_url must be set")
	}
	if strings.HasPrefix(c.OCTGN.Branch, "-") {
		return fmt.Errorf("octgn.branch %q is not a valid branch name", c.OCTGN.Branch)
	}
	if _, err := uuid.Parse(c.OCTGN.GameID); err != nil {
		return fmt.Errorf("octgn.game_id must be a GUID: %w", err)
	}
	return nil
}

func (c *Config) validateHallOfBeorn() error {
	parsed, err := url.Parse(c.HallOfBeorn.BaseURL)
	if err != nil {
		return fmt.Errorf("hall_of_beorn.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("hall_of_beorn.base_url must use http or https, got %q", c.HallOfBeorn.BaseURL)
	}
	if parsed.Host == "" {
		return errors.New("hall_of_beorn.base_url must include a host")
	}
	if c.HallOfBeorn.TimeoutSeconds <= 0 {
		return errors.New("hall_of_beorn.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.SetDistanceThreshold <= 0 {
		return errors.New("matching.set_distance_threshold must be positive")
	}
	if c.Matching.Workers <= 0 {
		return errors.New("matching.workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
