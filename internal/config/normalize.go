package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeLedger()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("PODARCHIVE_DOWNLOAD_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DownloadDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	var err error
	if c.Paths.DownloadDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadDir)); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if value, ok := os.LookupEnv("PODARCHIVE_USER_AGENT"); ok && strings.TrimSpace(value) != "" {
		c.Fetch.UserAgent = value
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
	if len(c.Fetch.Headers) > 0 {
		headers := make(map[string]string, len(c.Fetch.Headers))
		for key, value := range c.Fetch.Headers {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			headers[http.CanonicalHeaderKey(key)] = strings.TrimSpace(value)
		}
		c.Fetch.Headers = headers
	}
	if c.Fetch.RetryDelaySeconds < 0 {
		c.Fetch.RetryDelaySeconds = 0
	}
	if c.Fetch.MaxRetryDelaySeconds < c.Fetch.RetryDelaySeconds {
		c.Fetch.MaxRetryDelaySeconds = c.Fetch.RetryDelaySeconds
	}
}

func (c *Config) normalizeLedger() {
	c.Ledger.FileName = strings.TrimSpace(c.Ledger.FileName)
	if c.Ledger.FileName == "" {
		c.Ledger.FileName = defaultLedgerFileName
	}
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
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
