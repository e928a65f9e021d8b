package client

import (
	"hash"

	"github.com/adamwoolhether/hopper/client/download"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [download].
// ————————————————————————————————————————————————————————————————————

type (
	// OutputOption configures the file written by [WithOutput].
	OutputOption = download.Option

	// OutputError wraps a sentinel error with additional detail.
	OutputError = download.Error
)

// ————————————————————————————————————————————————————————————————————
// Sentinel errors
// ————————————————————————————————————————————————————————————————————

var (
	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch
)

// ————————————————————————————————————————————————————————————————————
// Output option forwarding functions
// ————————————————————————————————————————————————————————————————————

// WithChecksum verifies the output file against a hex-encoded digest.
// h is a [hash.Hash] instance (e.g. sha256.New()).
func WithChecksum(h hash.Hash, expected string) OutputOption {
	return download.WithChecksum(h, expected)
}

// WithProgress logs output progress at most once per second.
func WithProgress() OutputOption { return download.WithProgress() }

// WithSkipExisting leaves an existing output file untouched.
func WithSkipExisting() OutputOption { return download.WithSkipExisting() }
