package internal

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Version is the current firetrans release
const Version = "0.3.0"

// NewRecordID returns a fresh identifier for a stored translation record.
// Format: 20 hex characters from a random UUID, the same length as an
// auto-generated Firestore document ID.
func NewRecordID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:10])
}
