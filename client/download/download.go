package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// File receives the raw bytes of a response body as they are read and
// materialises them at the destination path on Commit. Write failures are
// recorded rather than returned so the reader feeding the File is never
// interrupted; they surface from Commit.
type File struct {
	dest   string
	tmp    *os.File
	w      io.Writer
	sum    *checksumVerifier
	total  int64
	n      int64
	err    error
	done   bool
	logger *slog.Logger
}

// Create opens a temp file next to destPath. It returns a nil File and nil
// error when WithSkipExisting is set and destPath already exists.
func Create(destPath string, contentLength int64, logger *slog.Logger, optFns ...Option) (*File, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			return nil, nil
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".hopper-out-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}

	f := File{
		dest:   destPath,
		tmp:    tmp,
		w:      tmp,
		sum:    opts.checksum,
		total:  contentLength,
		logger: logger,
	}

	if f.sum != nil {
		f.w = io.MultiWriter(f.w, f.sum)
	}

	if opts.progress {
		f.w = &progressWriter{
			w:         f.w,
			logger:    logger,
			total:     contentLength,
			startTime: time.Now(),
		}
	}

	return &f, nil
}

// Write copies p to the temp file. It always reports len(p).
func (f *File) Write(p []byte) (int, error) {
	if f.err != nil || f.done {
		return len(p), nil
	}

	n, err := f.w.Write(p)
	f.n += int64(n)
	if err != nil {
		f.err = fmt.Errorf("writing temp file: %w", err)
		f.logger.Error("output file write failed", "path", f.dest, "error", err)
	}

	return len(p), nil
}

// Written returns the number of bytes stored so far.
func (f *File) Written() int64 {
	return f.n
}

// Commit verifies the stored bytes and renames the temp file to the
// destination. The temp file is removed on any failure.
func (f *File) Commit() error {
	if f.done {
		return ErrFinished
	}
	f.done = true

	if err := f.commit(); err != nil {
		f.remove()
		return err
	}

	return nil
}

func (f *File) commit() error {
	if f.err != nil {
		return f.err
	}

	if f.total >= 0 && f.n != f.total {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", f.total, f.n),
		}
	}

	if err := f.sum.Verify(); err != nil {
		return err
	}

	if err := f.tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.dest); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Abort discards the temp file. It is a no-op after Commit.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.remove()
}

func (f *File) remove() {
	if err := f.tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		f.logger.Error("closing temp file", "error", err)
	}
	if err := os.Remove(f.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Error("failed to remove temp file", "error", err)
	}
}
