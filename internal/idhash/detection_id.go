package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDetectionID computes a deterministic detection_id using SHA256.
// Formula: SHA256(venue|attacker|window_seconds|start_ms|start_slot)
// Returns hex-encoded hash (64 characters).
func ComputeDetectionID(
	venue string,
	attacker string,
	windowSeconds int,
	startMs int64,
	startSlot int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d",
		venue,
		attacker,
		windowSeconds,
		startMs,
		startSlot,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
