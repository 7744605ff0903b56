package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cybergutta/akademitrack-agent/pkg/jobs"
)

// NotificationLevel grades user-facing notifications.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is one user-facing message.
type Notification struct {
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Level   NotificationLevel `json:"level"`
	At      time.Time         `json:"at"`
}

// NotificationSink receives dispatched notifications. Implementations are
// fire-and-forget delivery channels (system tray, native notifications).
type NotificationSink interface {
	Deliver(n Notification) error
}

// NotificationService dispatches notifications asynchronously through a
// worker queue so delivery latency never stalls the monitoring loop.
// Cooldown bookkeeping lives on the instance, not in package state, so
// independent services do not share throttling history.
type NotificationService struct {
	queue    *jobs.Queue
	sinks    []NotificationSink
	clock    Clock
	cooldown time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	recent   []Notification
}

// NotificationServiceConfig tunes dispatch behaviour.
type NotificationServiceConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Cooldown   time.Duration
}

// NewNotificationService builds the dispatcher.
func NewNotificationService(sinks []NotificationSink, clock Clock, cfg NotificationServiceConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock{}
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}

	s := &NotificationService{
		sinks:    sinks,
		clock:    clock,
		cooldown: cfg.Cooldown,
		logger:   logger,
		lastSent: map[string]time.Time{},
	}
	s.queue = jobs.NewQueue("notifications", s.dispatch, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start begins asynchronous dispatch.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify queues one notification for delivery.
func (s *NotificationService) Notify(title, message string, level NotificationLevel) {
	n := Notification{Title: title, Message: message, Level: level, At: s.clock.Now()}

	s.mu.Lock()
	s.recent = append(s.recent, n)
	if len(s.recent) > 50 {
		s.recent = s.recent[len(s.recent)-50:]
	}
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{Type: "notification", Payload: n}); err != nil {
		s.logger.Sugar().Warnw("notification dropped", "title", title, "error", err)
	}
}

// NotifyThrottled queues the notification unless the same key fired within
// the cooldown. Used for conditions that repeat every poll cycle, like the
// wrong-network rejection.
func (s *NotificationService) NotifyThrottled(key, title, message string, level NotificationLevel) {
	now := s.clock.Now()

	s.mu.Lock()
	if last, ok := s.lastSent[key]; ok && now.Sub(last) < s.cooldown {
		s.mu.Unlock()
		return
	}
	s.lastSent[key] = now
	s.mu.Unlock()

	s.Notify(title, message, level)
}

// Recent returns the most recent notifications, newest last.
func (s *NotificationService) Recent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *NotificationService) dispatch(_ context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		return nil
	}
	var lastErr error
	for _, sink := range s.sinks {
		if err := sink.Deliver(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// LogSink writes notifications to the structured log. It is always wired so
// every user-facing message also lands in the log file.
type LogSink struct {
	Logger *zap.Logger
}

// Deliver implements NotificationSink.
func (s LogSink) Deliver(n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Sugar().Infow("notification",
		"title", n.Title, "message", n.Message, "level", string(n.Level))
	return nil
}
