package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const registryFile = "registered_sessions.json"

// Clock abstracts wall-clock time so date scoping is testable.
type Clock interface {
	Now() time.Time
}

// SessionRegistry is the durable dedup store of already-registered sessions.
// The backing file is a single JSON object mapping session keys ("HHmm-HHmm")
// to RFC 3339 registration timestamps, read and rewritten wholesale on every
// operation. Storage failures are logged and treated as "no records": losing
// dedup state is preferable to blocking registration entirely.
type SessionRegistry struct {
	path   string
	clock  Clock
	logger *zap.Logger
	mu     sync.Mutex
}

// NewSessionRegistry builds a registry rooted at dataDir.
func NewSessionRegistry(dataDir string, clock Clock, logger *zap.Logger) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		path:   filepath.Join(dataDir, registryFile),
		clock:  clock,
		logger: logger,
	}
}

// LoadForToday returns the session keys registered today and compacts the
// backing file to contain only those records, discarding stale days left
// over from earlier runs or crashes.
func (r *SessionRegistry) LoadForToday() map[string]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.read()
	today := r.today()

	current := make(map[string]time.Time, len(records))
	for key, ts := range records {
		if sameDay(ts, today) {
			current[key] = ts
		}
	}

	if len(current) != len(records) {
		r.write(current)
	}
	return current
}

// IsRegistered reports whether a record for key exists with today's date.
func (r *SessionRegistry) IsRegistered(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.read()[key]
	return ok && sameDay(ts, r.today())
}

// MarkRegistered idempotently records key -> now. An existing record for
// today is left untouched.
func (r *SessionRegistry) MarkRegistered(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.read()
	if ts, ok := records[key]; ok && sameDay(ts, r.today()) {
		return
	}
	records[key] = r.clock.Now()
	r.write(records)
}

func (r *SessionRegistry) today() time.Time {
	return r.clock.Now()
}

func (r *SessionRegistry) read() map[string]time.Time {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Sugar().Warnw("session registry unreadable, assuming empty", "path", r.path, "error", err)
		}
		return map[string]time.Time{}
	}

	encoded := map[string]string{}
	if err := json.Unmarshal(raw, &encoded); err != nil {
		r.logger.Sugar().Warnw("session registry corrupt, assuming empty", "path", r.path, "error", err)
		return map[string]time.Time{}
	}

	records := make(map[string]time.Time, len(encoded))
	for key, value := range encoded {
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			r.logger.Sugar().Warnw("dropping unparsable registry record", "key", key, "value", value)
			continue
		}
		records[key] = ts
	}
	return records
}

func (r *SessionRegistry) write(records map[string]time.Time) {
	encoded := make(map[string]string, len(records))
	for key, ts := range records {
		encoded[key] = ts.Format(time.RFC3339)
	}

	raw, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		r.logger.Sugar().Errorw("encode session registry", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		r.logger.Sugar().Errorw("create data dir", "path", r.path, "error", err)
		return
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		r.logger.Sugar().Errorw("write session registry", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, r.path); err != nil {
		r.logger.Sugar().Errorw("replace session registry", "path", r.path, "error", err)
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
