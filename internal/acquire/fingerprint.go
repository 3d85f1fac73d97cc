package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Fingerprint returns the hex SHA-256 of the file's content. A missing or
// empty file is an error: acquisition must never record a fingerprint for a
// payload that is not fully on disk.
func Fingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	if n == 0 {
		return "", fmt.Errorf("fingerprint %s: file is empty", path)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
