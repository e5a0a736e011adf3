package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the dedupe key for a candidate work item: the
// lowercase hex SHA-256 of "tenantID|sender|presetID|normalizedBody".
// Field order and the literal separator are part of the contract: the
// output must stay stable across restarts and implementations.
func Fingerprint(tenantID, sender, normalizedBody, presetID string) string {
	raw := strings.Join([]string{tenantID, sender, presetID, normalizedBody}, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
