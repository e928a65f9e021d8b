package download

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestFile(t *testing.T) {
	const payload = "hello, hopper"

	testCases := map[string]struct {
		contentLength int64
		opts          []Option
		expErr        error
	}{
		"knownLength": {
			contentLength: int64(len(payload)),
		},
		"unknownLength": {
			contentLength: -1,
			opts:          []Option{WithProgress()},
		},
		"lengthMismatch": {
			contentLength: 3,
			expErr:        ErrContentLengthMismatch,
		},
		"checksumMatch": {
			contentLength: -1,
			opts:          []Option{WithChecksum(sha256.New(), sha(payload))},
		},
		"checksumMismatch": {
			contentLength: -1,
			opts:          []Option{WithChecksum(sha256.New(), sha("other"))},
			expErr:        ErrChecksumMismatch,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "out.txt")

			f, err := Create(dest, tc.contentLength, discard, tc.opts...)
			if err != nil {
				t.Fatalf("creating file: %v", err)
			}

			for _, part := range []string{payload[:5], payload[5:]} {
				if n, err := f.Write([]byte(part)); err != nil || n != len(part) {
					t.Fatalf("write returned %d, %v", n, err)
				}
			}

			err = f.Commit()
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("exp %v, got %v", tc.expErr, err)
				}
				if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
					t.Errorf("destination must not exist after failed commit")
				}
				assertNoTemps(t, dir)
				return
			}
			if err != nil {
				t.Fatalf("committing: %v", err)
			}

			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("reading destination: %v", err)
			}
			if string(got) != payload {
				t.Errorf("exp %q, got %q", payload, got)
			}
			assertNoTemps(t, dir)
		})
	}
}

func TestFile_Abort(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	f, err := Create(dest, -1, discard)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	_, _ = f.Write([]byte("partial"))

	f.Abort()
	f.Abort()

	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("destination must not exist after abort")
	}
	assertNoTemps(t, dir)

	if err := f.Commit(); !errors.Is(err, ErrFinished) {
		t.Errorf("exp ErrFinished after abort, got %v", err)
	}
}

func TestFile_SkipExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "exists.txt")
	if err := os.WriteFile(dest, []byte("keep"), 0o600); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	f, err := Create(dest, -1, discard, WithSkipExisting())
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	if f != nil {
		t.Fatal("exp nil file for existing destination")
	}
}

func TestCreate_BadOptions(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "x")

	if _, err := Create(dest, -1, discard, WithChecksum(nil, "abc")); err == nil {
		t.Error("exp error for nil hash")
	}
	if _, err := Create(dest, -1, discard, WithChecksum(sha256.New(), "")); err == nil {
		t.Error("exp error for empty checksum")
	}
}

func TestCreate_MissingDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nope", "out.txt")

	if _, err := Create(dest, -1, discard); err == nil {
		t.Error("exp error for missing directory")
	}
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, ".hopper-out-*"))
	if err != nil {
		t.Fatalf("globbing: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}
