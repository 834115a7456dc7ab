package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransient         = errors.New("transient transport error")
	ErrPermanent         = errors.New("permanent source error")
	ErrDownloadFailed    = errors.New("download failed")
	ErrMetadataCorrupt   = errors.New("metadata corrupt")
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrInvalidEpisode    = errors.New("invalid episode")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker so callers can classify it with errors.Is. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the most specific marker found in err.
// Download failures report whether the underlying cause was permanent.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMetadataCorrupt):
		return "metadata_corrupt"
	case errors.Is(err, ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, ErrInvalidEpisode):
		return "invalid_episode"
	case errors.Is(err, ErrDownloadFailed) && errors.Is(err, ErrPermanent):
		return "download_failed_permanent"
	case errors.Is(err, ErrDownloadFailed):
		return "download_failed"
	case errors.Is(err, ErrPermanent):
		return "permanent"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "error"
	}
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, ErrPermanent)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "archive failure"
	}
	return strings.Join(parts, ": ")
}
