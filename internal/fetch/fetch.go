package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"podarchive/internal/failure"
	"podarchive/internal/fileutil"
	"podarchive/internal/logging"
)

const (
	defaultTimeout       = 5 * time.Minute
	defaultAttempts      = 10
	defaultRetryDelay    = 5 * time.Second
	defaultMaxRetryDelay = 60 * time.Second
	defaultUserAgent     = "podarchive"
)

// Config captures the settings shared by every download a Fetcher performs.
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	Headers       map[string]string
	Attempts      int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Fetcher downloads remote files into place atomically.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	sleeper func(time.Duration)
	logger  *slog.Logger
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(f *Fetcher) {
		f.sleeper = sleeper
	}
}

// WithLogger attaches a logger for retry and download events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New constructs a Fetcher. Zero values in cfg fall back to defaults.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = defaultMaxRetryDelay
	}
	cfg.UserAgent = strings.TrimSpace(cfg.UserAgent)
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	f := &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.NewComponentLogger(f.logger, "fetch")
	return f
}

// DefaultConfig returns the retry policy used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:       defaultTimeout,
		Attempts:      defaultAttempts,
		RetryDelay:    defaultRetryDelay,
		MaxRetryDelay: defaultMaxRetryDelay,
		UserAgent:     defaultUserAgent,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http %d", e.URL, e.StatusCode)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// Fetch performs a single download of rawURL into dest. When dest already
// exists it is returned untouched without any network access. The body is
// streamed into a temporary sibling that is renamed into place only after the
// whole response has been written and synced, so dest never holds a partial
// file.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (string, error) {
	exists, err := fileutil.Exists(dest)
	if err != nil {
		return "", failure.Wrap(failure.ErrPermanent, "fetch", "stat destination", dest, err)
	}
	if exists {
		return dest, nil
	}

	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", failure.Wrap(failure.ErrPermanent, "fetch", "create directory", filepath.Dir(dest), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", failure.Wrap(failure.ErrTransient, "fetch", "request", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		statusErr.RetryAfter, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
		marker := failure.ErrPermanent
		if statusErr.Temporary() {
			marker = failure.ErrTransient
		}
		return "", failure.Wrap(marker, "fetch", "response", "", statusErr)
	}

	written, err := writeAtomic(resp.Body, dest)
	if err != nil {
		return "", err
	}

	if removed, err := fileutil.RemoveStaleTemps(dest); err != nil {
		logging.WarnWithContext(f.logger, "stale temp sweep failed", "fetch_sweep_failed",
			logging.String("path", dest),
			logging.Error(err),
			logging.String(logging.FieldImpact, "leftover temp files remain next to the download"),
		)
	} else if removed > 0 {
		f.logger.Debug("removed stale temp files", logging.String("path", dest), logging.Int("count", removed))
	}

	f.logger.Debug("downloaded",
		logging.String("url", rawURL),
		logging.String("path", dest),
		logging.Int64("bytes", written),
	)
	return dest, nil
}

// Download runs Fetch under the configured retry policy. Transient failures
// are retried with exponential backoff; permanent ones fail immediately. Any
// failure is tagged with failure.ErrDownloadFailed.
func (f *Fetcher) Download(ctx context.Context, rawURL, dest string) (string, error) {
	attempts := f.cfg.Attempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		path, err := f.Fetch(ctx, rawURL, dest)
		if err == nil {
			return path, nil
		}
		lastErr = err

		delay, retry := f.retryDelay(ctx, err, attempt)
		if !retry {
			break
		}
		logging.WithContext(ctx, f.logger).Info("download attempt failed; retrying",
			logging.String("url", rawURL),
			logging.Int("attempt", attempt),
			logging.Int("attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := f.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return "", failure.Wrap(failure.ErrDownloadFailed, "fetch", "download", rawURL, lastErr)
}

func (f *Fetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, failure.Wrap(failure.ErrPermanent, "fetch", "parse url", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, failure.Wrap(failure.ErrPermanent, "fetch", "parse url", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, failure.Wrap(failure.ErrPermanent, "fetch", "build request", rawURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	for key, value := range f.cfg.Headers {
		req.Header.Set(key, value)
	}
	return req, nil
}

func writeAtomic(body io.Reader, dest string) (int64, error) {
	tmp := fileutil.TempPath(dest)
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, failure.Wrap(failure.ErrPermanent, "fetch", "create temp file", tmp, err)
	}

	written, copyErr := copyBody(out, body)
	if copyErr == nil {
		if err := out.Sync(); err != nil {
			copyErr = failure.Wrap(failure.ErrPermanent, "fetch", "sync temp file", tmp, err)
		}
	}
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(tmp)
		return 0, copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmp)
		return 0, failure.Wrap(failure.ErrPermanent, "fetch", "close temp file", tmp, closeErr)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return 0, failure.Wrap(failure.ErrPermanent, "fetch", "rename into place", dest, err)
	}
	return written, nil
}

// copyBody streams body into dst. Failures reading the response are
// transient; failures writing locally (disk full, I/O errors) are permanent.
func copyBody(dst io.Writer, body io.Reader) (int64, error) {
	src := &trackedReader{r: body}
	written, err := io.Copy(dst, src)
	if err == nil {
		return written, nil
	}
	if src.err != nil {
		return written, failure.Wrap(failure.ErrTransient, "fetch", "read body", "", err)
	}
	return written, failure.Wrap(failure.ErrPermanent, "fetch", "write body", "", err)
}

type trackedReader struct {
	r   io.Reader
	err error
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

func (f *Fetcher) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= f.cfg.Attempts {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if !failure.Retryable(err) {
		return 0, false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return f.capDelay(statusErr.RetryAfter), true
	}
	return f.backoffDelay(attempt), true
}

// backoffDelay doubles the base delay per attempt: base, base*2, base*4, ...
func (f *Fetcher) backoffDelay(attempt int) time.Duration {
	delay := f.cfg.RetryDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		if delay > f.cfg.MaxRetryDelay/2 {
			return f.cfg.MaxRetryDelay
		}
		delay *= 2
	}
	return f.capDelay(delay)
}

func (f *Fetcher) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if delay > f.cfg.MaxRetryDelay {
		return f.cfg.MaxRetryDelay
	}
	return delay
}

func (f *Fetcher) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if f.sleeper != nil {
		f.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
