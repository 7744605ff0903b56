package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testClock() fixedClock {
	return fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)}
}

func TestMarkRegisteredIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	registry := NewSessionRegistry(dir, testClock(), nil)

	registry.MarkRegistered("0815-0900")
	registry.MarkRegistered("0815-0900")

	assert.True(t, registry.IsRegistered("0815-0900"))

	raw, err := os.ReadFile(filepath.Join(dir, "registered_sessions.json"))
	require.NoError(t, err)
	records := map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &records))
	assert.Len(t, records, 1)
}

func TestIsRegisteredIgnoresStaleRecords(t *testing.T) {
	dir := t.TempDir()
	clock := testClock()

	yesterday := NewSessionRegistry(dir, fixedClock{now: clock.now.AddDate(0, 0, -1)}, nil)
	yesterday.MarkRegistered("0815-0900")

	today := NewSessionRegistry(dir, clock, nil)
	assert.False(t, today.IsRegistered("0815-0900"))
}

func TestLoadForTodayPurgesOldDays(t *testing.T) {
	dir := t.TempDir()
	clock := testClock()

	stale := NewSessionRegistry(dir, fixedClock{now: clock.now.AddDate(0, 0, -1)}, nil)
	stale.MarkRegistered("1000-1045")

	current := NewSessionRegistry(dir, clock, nil)
	current.MarkRegistered("0815-0900")

	loaded := current.LoadForToday()
	require.Len(t, loaded, 1)
	assert.Contains(t, loaded, "0815-0900")

	// The backing store must only contain today's record afterwards.
	raw, err := os.ReadFile(filepath.Join(dir, "registered_sessions.json"))
	require.NoError(t, err)
	records := map[string]string{}
	require.NoError(t, json.Unmarshal(raw, &records))
	assert.Len(t, records, 1)
	assert.Contains(t, records, "0815-0900")
}

func TestRegistryFailsOpenOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registered_sessions.json"), []byte("{not json"), 0o600))

	registry := NewSessionRegistry(dir, testClock(), nil)
	assert.Empty(t, registry.LoadForToday())
	assert.False(t, registry.IsRegistered("0815-0900"))

	// Marking still works and heals the store.
	registry.MarkRegistered("0815-0900")
	assert.True(t, registry.IsRegistered("0815-0900"))
}

func TestRegistryDropsUnparsableTimestamps(t *testing.T) {
	dir := t.TempDir()
	raw, err := json.Marshal(map[string]string{"0815-0900": "not-a-time"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registered_sessions.json"), raw, 0o600))

	registry := NewSessionRegistry(dir, testClock(), nil)
	assert.False(t, registry.IsRegistered("0815-0900"))
}
