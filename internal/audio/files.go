package audio

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
)

// MakeDir creates a directory with all parent directories.
func MakeDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// FileHash returns the hex-encoded MD5 of a file's contents, used for the
// idempotent-add-by-content fast path.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
