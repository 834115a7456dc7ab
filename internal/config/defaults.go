package config

const (
	defaultConfigPath           = "~/.config/podarchive/config.toml"
	defaultDownloadDir          = "~/podcasts"
	defaultLogDir               = "~/.local/share/podarchive/logs"
	defaultFetchTimeoutSeconds  = 300
	defaultFetchAttempts        = 10
	defaultRetryDelaySeconds    = 5
	defaultMaxRetryDelaySeconds = 60
	defaultUserAgent            = "podarchive/dev"
	defaultLedgerFileName       = "ledger.sqlite"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	lockFileName                = ".podarchive.lock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Fetch: Fetch{
			TimeoutSeconds:       defaultFetchTimeoutSeconds,
			Attempts:             defaultFetchAttempts,
			RetryDelaySeconds:    defaultRetryDelaySeconds,
			MaxRetryDelaySeconds: defaultMaxRetryDelaySeconds,
			UserAgent:            defaultUserAgent,
		},
		Feeds: Feeds{
			Snapshots: true,
		},
		Ledger: Ledger{
			FileName: defaultLedgerFileName,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
