// Package idhash derives deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"drop-storefront/internal/domain"
)

// ComputeTokenEventID computes a deterministic event_id for an event about
// one minted token.
// Formula: SHA256(event_type|slug|token_id)
// Returns hex-encoded hash (64 characters).
func ComputeTokenEventID(eventType domain.EventType, slug, tokenID string) string {
	data := fmt.Sprintf("%s|%s|%s", string(eventType), slug, tokenID)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
