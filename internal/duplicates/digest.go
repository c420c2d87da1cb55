package duplicates

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Digester computes a content fingerprint for a file path. Implementations
// must be safe for sequential reuse across a whole batch.
type Digester interface {
	Digest(path string) (string, error)
}

// MD5Digester streams file bytes through MD5 with a fixed-size buffer.
// MD5 is used as a fast non-adversarial fingerprint, not for security.
type MD5Digester struct{}

var _ Digester = MD5Digester{}

const digestBufSize = 8 * 1024

// Digest returns the lowercase hex MD5 of the file's bytes.
func (MD5Digester) Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for digesting: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, digestBufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
