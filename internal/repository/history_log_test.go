package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLogAppendAndList(t *testing.T) {
	dir := t.TempDir()
	log := NewHistoryLog(dir, nil)

	first := HistoryEntry{
		SessionKey: "0815-0900", Date: "20250310", Subject: "STU",
		Start: "08:15", End: "09:00",
		RegisteredAt: time.Date(2025, 3, 10, 8, 16, 0, 0, time.UTC),
	}
	second := first
	second.SessionKey = "1000-1045"
	second.RegisteredAt = first.RegisteredAt.Add(2 * time.Hour)

	log.Append(first)
	log.Append(second)

	entries := log.List()
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "1000-1045", entries[0].SessionKey)
	assert.Equal(t, "0815-0900", entries[1].SessionKey)
}

func TestHistoryLogSurvivesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registration_history.json"), []byte("???"), 0o600))

	log := NewHistoryLog(dir, nil)
	assert.Empty(t, log.List())

	log.Append(HistoryEntry{SessionKey: "0815-0900", RegisteredAt: time.Now()})
	assert.Len(t, log.List(), 1)
}
