package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.timeout_seconds": c.Fetch.TimeoutSeconds,
		"fetch.attempts":        c.Fetch.Attempts,
	}); err != nil {
		return err
	}
	if c.Fetch.RetryDelaySeconds < 0 {
		return errors.New("fetch.retry_delay_seconds must be >= 0")
	}
	if c.Fetch.MaxRetryDelaySeconds < c.Fetch.RetryDelaySeconds {
		return errors.New("fetch.max_retry_delay_seconds must be >= fetch.retry_delay_seconds")
	}
	return nil
}

func (c *Config) validateLedger() error {
	name := c.Ledger.FileName
	if name == "" {
		return errors.New("ledger.file_name must be set")
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("ledger.file_name %q must be a plain file name", name)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
