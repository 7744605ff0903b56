package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const historyFile = "registration_history.json"

// HistoryEntry is one completed registration, kept across days so the user
// can review and export what the agent has done.
type HistoryEntry struct {
	SessionKey   string    `json:"session_key"`
	Date         string    `json:"date"`
	Subject      string    `json:"subject"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	RegisteredAt time.Time `json:"registered_at"`
}

// HistoryLog is an append-mostly JSON list of registrations. Unlike the
// session registry it is never purged; it feeds the history and export
// endpoints, not the dedup decision.
type HistoryLog struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewHistoryLog builds a history log rooted at dataDir.
func NewHistoryLog(dataDir string, logger *zap.Logger) *HistoryLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryLog{
		path:   filepath.Join(dataDir, historyFile),
		logger: logger,
	}
}

// Append records one registration. Failures are logged, never propagated:
// history is advisory and must not block the loop.
func (h *HistoryLog) Append(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.read()
	entries = append(entries, entry)
	h.write(entries)
}

// List returns all recorded registrations, newest first.
func (h *HistoryLog) List() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.read()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RegisteredAt.After(entries[j].RegisteredAt)
	})
	return entries
}

func (h *HistoryLog) read() []HistoryEntry {
	raw, err := os.ReadFile(h.path)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Sugar().Warnw("history log unreadable", "path", h.path, "error", err)
		}
		return nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		h.logger.Sugar().Warnw("history log corrupt, starting over", "path", h.path, "error", err)
		return nil
	}
	return entries
}

func (h *HistoryLog) write(entries []HistoryEntry) {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		h.logger.Sugar().Errorw("encode history log", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		h.logger.Sugar().Errorw("create data dir", "path", h.path, "error", err)
		return
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		h.logger.Sugar().Errorw("write history log", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, h.path); err != nil {
		h.logger.Sugar().Errorw("replace history log", "path", h.path, "error", err)
	}
}
