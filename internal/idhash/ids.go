package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

func hashOf(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeBatchID computes a deterministic batch_id using SHA256.
// Formula: SHA256("batch"|start_ms|seq)
// Returns hex-encoded hash (64 characters).
func ComputeBatchID(startMs int64, seq uint64) string {
	return hashOf(fmt.Sprintf("batch|%d|%d", startMs, seq))
}

// ComputeSessionID computes a deterministic session_id.
// Formula: SHA256("session"|batch_id|mint)
func ComputeSessionID(batchID, mint string) string {
	return hashOf(fmt.Sprintf("session|%s|%s", batchID, mint))
}

// ComputeAttemptID computes a deterministic buy attempt_id.
// Formula: SHA256("attempt"|session_id)
// One session yields at most one attempt, so the session is the only input.
func ComputeAttemptID(sessionID string) string {
	return hashOf(fmt.Sprintf("attempt|%s", sessionID))
}
