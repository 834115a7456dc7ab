package fetch

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"

	"podarchive/internal/failure"
)

type fullDisk struct{}

func (fullDisk) Write([]byte) (int, error) { return 0, syscall.ENOSPC }

func TestCopyBodyClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		dst       io.Writer
		src       io.Reader
		retryable bool
		cause     error
	}{
		{"local write failure", fullDisk{}, strings.NewReader("audio"), false, syscall.ENOSPC},
		{"body read failure", &bytes.Buffer{}, iotest.ErrReader(io.ErrUnexpectedEOF), true, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := copyBody(tt.dst, tt.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := failure.Retryable(err); got != tt.retryable {
				t.Fatalf("Retryable = %v, want %v (err=%v)", got, tt.retryable, err)
			}
			if !errors.Is(err, tt.cause) {
				t.Fatalf("expected cause %v to be preserved, got %v", tt.cause, err)
			}
		})
	}
}

func TestCopyBodyCopiesEverything(t *testing.T) {
	var dst bytes.Buffer
	written, err := copyBody(&dst, strings.NewReader("episode audio"))
	if err != nil {
		t.Fatalf("copyBody returned error: %v", err)
	}
	if written != int64(len("episode audio")) || dst.String() != "episode audio" {
		t.Fatalf("unexpected copy: %d bytes, %q", written, dst.String())
	}
}
