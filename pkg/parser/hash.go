package parser

import (
	"crypto/md5" // #nosec G501 -- md5 is only used to match digests recorded by older ingesters
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Supported content hash algorithms.
const (
	HashSHA256 = "sha256"
	HashMD5    = "md5"
)

// NewHash returns a hash.Hash for the named algorithm.
func NewHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case HashSHA256, "":
		return sha256.New(), nil
	case HashMD5:
		return md5.New(), nil // #nosec G401
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q (use sha256 or md5)", algorithm)
	}
}

// HashFile returns the hex digest of the full content of the file at path.
func HashFile(path, algorithm string) (string, error) {
	h, err := NewHash(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path) // #nosec G304 -- paths come from the configured roots
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
