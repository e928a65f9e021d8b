// Package download mirrors the raw bytes of a response body into a file
// while the body is consumed elsewhere, with optional checksum validation
// and progress reporting.
//
// [Create] opens a temporary file alongside the destination path. The
// caller tees the body into the returned [File] and finishes with either
// [File.Commit], which verifies and atomically renames, or [File.Abort]:
//
//	out, err := download.Create(destPath, resp.ContentLength, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//	body := io.TeeReader(resp.Body, out)
//	// ... consume body ...
//	err = out.Commit()
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/hopper/client] package, which drives a File
// for every request made with client.WithOutput and re-exports these
// options.
package download
