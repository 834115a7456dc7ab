package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"podarchive/internal/config"
	"podarchive/internal/fetch"
	"podarchive/internal/logging"
	"podarchive/internal/preflight"
)

// runSession bundles what a mutating command needs: the run lock, a logger
// writing to the per-run log file, and the shared fetcher.
type runSession struct {
	cfg     *config.Config
	logger  *slog.Logger
	logPath string
	lock    *flock.Flock
	fetcher *fetch.Fetcher
}

func openSession(cfg *config.Config) (*runSession, error) {
	if check := preflight.CheckDirectoryAccess("download directory", cfg.Paths.DownloadDir); !check.Passed {
		return nil, fmt.Errorf("download directory unusable: %s", check.Detail)
	}

	lock, err := acquireRunLock(cfg)
	if err != nil {
		return nil, err
	}

	logger, logPath, err := logging.NewFromConfig(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if logPath != "" {
		logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, filepath.Base(logPath))
	}

	return &runSession{
		cfg:     cfg,
		logger:  logger,
		logPath: logPath,
		lock:    lock,
		fetcher: newFetcher(cfg, logger),
	}, nil
}

func (s *runSession) Close() {
	if s == nil || s.lock == nil {
		return
	}
	_ = s.lock.Unlock()
}

func acquireRunLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another podarchive run holds " + cfg.LockPath())
	}
	return lock, nil
}

func newFetcher(cfg *config.Config, logger *slog.Logger) *fetch.Fetcher {
	base, maxDelay := cfg.RetryDelays()
	return fetch.New(fetch.Config{
		Timeout:       cfg.FetchTimeout(),
		UserAgent:     cfg.Fetch.UserAgent,
		Headers:       cfg.Fetch.Headers,
		Attempts:      cfg.Fetch.Attempts,
		RetryDelay:    base,
		MaxRetryDelay: maxDelay,
	}, fetch.WithLogger(logger))
}
