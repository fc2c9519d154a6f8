// Package errs collects the sentinel error values surfaced at share/remote
// subsystem boundaries (spec §7), plus small wrap helpers in the teacher's
// filesystem/common/errors.go style.
package errs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrNotFound covers a missing virtual path, TTH, or profile ("FILE_NOT_AVAILABLE").
	ErrNotFound = errors.New("file not available")
	// ErrForbidden covers an attempt to share a reserved path or name.
	ErrForbidden = errors.New("path is forbidden")
	// ErrParse covers a streaming XML failure mid-document.
	ErrParse = errors.New("listing parse failed")
	// ErrAborted covers a shutdown or user cancel.
	ErrAborted = errors.New("operation aborted")
	// ErrHashMissing covers a scanned file that has no cached TTH yet.
	ErrHashMissing = errors.New("hash not available")
	// ErrInProgress covers a refresh request while one is already running.
	ErrInProgress = errors.New("refresh already in progress")
)

// Wrap adds context to err, returning nil if err is nil.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// LogAndWrap logs err at the given level with context, then wraps and returns it.
func LogAndWrap(err error, level slog.Level, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	slog.Log(context.Background(), level, msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
