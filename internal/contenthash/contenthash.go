// Package contenthash fingerprints transcript payloads so unchanged
// re-deliveries can be skipped.
package contenthash

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"lukechampine.com/blake3"
)

// Sum returns the hex encoded BLAKE3-256 digest of r.
func Sum(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes is Sum over an in-memory payload.
func SumBytes(data []byte) string {
	sum, _ := Sum(bytes.NewReader(data))
	return sum
}
