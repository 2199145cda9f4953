// Package checksum computes SHA-256 digests of files and manages the
// sha256sum-compatible sidecar files written next to mirrored artifacts.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mirror/pkg/serrors"
	"os"
	"path/filepath"
	"strings"
)

// SidecarSuffix is appended to an artifact path to name its checksum sidecar.
const SidecarSuffix = ".sha256"

// Reader consumes r to EOF and returns the hex-encoded SHA-256 digest of its
// contents.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("could not hash contents: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the hex-encoded SHA-256 digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Reader(f)
}

// Verify compares the digest of the file at path against the expected hex
// digest. It returns an ErrIntegrity error on mismatch.
func Verify(path, expected string) error {
	actual, err := File(path)
	if err != nil {
		return fmt.Errorf("could not compute digest: %w", err)
	}
	if !strings.EqualFold(actual, expected) {
		return serrors.With(serrors.ErrIntegrity,
			"digest mismatch for %s [expected=%s, actual=%s]", path, expected, actual)
	}

	return nil
}

// WriteSidecar computes the digest of the file at path and writes a sidecar
// file at path+SidecarSuffix in coreutils format ("<digest>  <basename>\n"),
// so the output can be checked with `sha256sum -c`. It returns the digest.
func WriteSidecar(path string) (string, error) {
	digest, err := File(path)
	if err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s  %s\n", digest, filepath.Base(path))
	if err := os.WriteFile(path+SidecarSuffix, []byte(line), 0o644); err != nil {
		return "", fmt.Errorf("could not write sidecar: %w", err)
	}

	return digest, nil
}

// ParseSidecar extracts the digest and file name from the contents of a
// sidecar file. Only the single-entry coreutils format is accepted.
func ParseSidecar(content string) (digest, name string, err error) {
	line := strings.TrimRight(content, "\n")
	digest, name, ok := strings.Cut(line, "  ")
	if !ok || strings.ContainsRune(line, '\n') || name == "" {
		return "", "", serrors.With(serrors.ErrBadRequest, "malformed sidecar line: %q", line)
	}
	if len(digest) != sha256.Size*2 {
		return "", "", serrors.With(serrors.ErrBadRequest, "malformed digest in sidecar: %q", digest)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", "", serrors.Wrap(serrors.ErrBadRequest, err, "malformed digest in sidecar")
	}

	return digest, name, nil
}

// ReadSidecar reads and parses the sidecar file at sidecarPath.
func ReadSidecar(sidecarPath string) (digest, name string, err error) {
	content, err := os.ReadFile(sidecarPath)
	if err != nil {
		return "", "", fmt.Errorf("could not read sidecar: %w", err)
	}

	return ParseSidecar(string(content))
}
