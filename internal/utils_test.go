package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRecordID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRecordID()
		require.Len(t, id, 20)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
