// Package fingerprint derives content-addressed identities for uploads.
// The digest is the sole cache key for extraction results; identical bytes
// always map to the same key. SHA-256 is used for its collision resistance,
// not as a security credential.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Compute returns the lowercase hex SHA-256 digest of content.
// A nil byte slice is rejected; an empty (non-nil) one is a legal, if
// useless, document and hashes normally.
func Compute(content []byte) (string, error) {
	if content == nil {
		return "", common.NewAppError(common.CodeInvalidInput, "file content must not be nil", nil)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
