package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/cybergutta/akademitrack-agent/internal/dto"
	"github.com/cybergutta/akademitrack-agent/internal/models"
	"github.com/cybergutta/akademitrack-agent/internal/repository"
	"github.com/cybergutta/akademitrack-agent/pkg/config"
	appErrors "github.com/cybergutta/akademitrack-agent/pkg/errors"
)

// ScheduleSource fetches the day's timetable. ok=false covers transport
// errors, auth expiry and undecodable bodies alike.
type ScheduleSource interface {
	FetchToday(ctx context.Context, scope models.UserScope, cookies map[string]string) ([]models.ScheduleItem, bool)
}

// RegistrationGateway submits one attendance registration.
type RegistrationGateway interface {
	Register(ctx context.Context, scope models.UserScope, cookies map[string]string, session models.ScheduleItem) models.RegistrationOutcome
}

// AuthenticationGateway refreshes the session credentials.
type AuthenticationGateway interface {
	Stored() (models.Credentials, bool)
	Authenticate(ctx context.Context) (models.Credentials, models.AuthOutcome)
}

// SessionStore is the durable dedup record of registered sessions.
type SessionStore interface {
	LoadForToday() map[string]time.Time
	IsRegistered(key string) bool
	MarkRegistered(key string)
}

// HistoryAppender records completed registrations for review and export.
type HistoryAppender interface {
	Append(entry repository.HistoryEntry)
}

// Notifier delivers user-facing notifications.
type Notifier interface {
	Notify(title, message string, level NotificationLevel)
	NotifyThrottled(key, title, message string, level NotificationLevel)
}

// AutomationService runs the monitoring loop: fetch the day's timetable,
// keep the conflict-free study sessions, and register attendance for each
// one while its window is open. One instance runs at most one loop at a
// time; all run state lives on the instance.
type AutomationService struct {
	source   ScheduleSource
	gateway  RegistrationGateway
	auth     AuthenticationGateway
	registry SessionStore
	history  HistoryAppender
	resolver *OverlapResolver
	notifier Notifier
	metrics  *MetricsService
	clock    Clock
	cfg      config.AutomationConfig
	logger   *zap.Logger

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	creds        models.Credentials
	state        string
	cycle        int
	total        int
	registered   int
	openCount    int
	waitingCount int
	lastStatus   models.TerminalStatus
	lastFinished *time.Time
}

// NewAutomationService wires the monitoring loop.
func NewAutomationService(
	source ScheduleSource,
	gateway RegistrationGateway,
	auth AuthenticationGateway,
	registry SessionStore,
	history HistoryAppender,
	resolver *OverlapResolver,
	notifier Notifier,
	metrics *MetricsService,
	clock Clock,
	cfg config.AutomationConfig,
	logger *zap.Logger,
) *AutomationService {
	if resolver == nil {
		resolver = NewOverlapResolver(logger)
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if metrics == nil {
		metrics = NewMetricsService()
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if history == nil {
		history = noopHistory{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	return &AutomationService{
		source:   source,
		gateway:  gateway,
		auth:     auth,
		registry: registry,
		history:  history,
		resolver: resolver,
		notifier: notifier,
		metrics:  metrics,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		state:    "idle",
	}
}

// Metrics exposes the loop's instrumentation for the control API.
func (s *AutomationService) Metrics() *MetricsService {
	return s.metrics
}

// Start launches a monitoring run in the background. It fails if a run is
// already in flight.
func (s *AutomationService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return appErrors.ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.state = "initializing"
	s.mu.Unlock()

	go func() {
		defer cancel()
		s.runToCompletion(runCtx)
	}()
	return nil
}

// Run executes one monitoring run synchronously. It fails if a run is
// already in flight.
func (s *AutomationService) Run(ctx context.Context) (models.TerminalStatus, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return "", appErrors.ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.state = "initializing"
	s.mu.Unlock()

	defer cancel()
	return s.runToCompletion(runCtx), nil
}

// Stop requests cooperative cancellation of the current run. An in-flight
// HTTP call is allowed to finish; no further cycles start.
func (s *AutomationService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return appErrors.ErrNotRunning
	}
	s.cancel()
	return nil
}

// Status reports a snapshot of the loop for the control API.
func (s *AutomationService) Status() dto.AutomationStatus {
	cycles, regs := s.metrics.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	return dto.AutomationStatus{
		Running:        s.running,
		State:          s.state,
		Cycle:          s.cycle,
		TotalSessions:  s.total,
		Registered:     s.registered,
		OpenWindows:    s.openCount,
		WaitingWindows: s.waitingCount,
		LastStatus:     string(s.lastStatus),
		LastFinishedAt: s.lastFinished,
		LifetimeCycles: cycles,
		LifetimeRegs:   regs,
	}
}

func (s *AutomationService) runToCompletion(ctx context.Context) models.TerminalStatus {
	status := s.run(ctx)

	now := s.clock.Now()
	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.state = "idle"
	s.lastStatus = status
	s.lastFinished = &now
	s.mu.Unlock()

	s.logger.Sugar().Infow("monitoring run finished", "status", string(status))
	return status
}

func (s *AutomationService) run(ctx context.Context) models.TerminalStatus {
	if creds, ok := s.auth.Stored(); ok {
		s.setCredentials(creds)
	}

	s.notifier.Notify("Automatisering startet", "STU tidsregistrering kjører nå", LevelInfo)

	s.setState("fetching")
	items, err := s.fetchTimetable(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.StatusCancelled
		}
		s.logger.Sugar().Errorw("timetable fetch exhausted retries", "error", err)
		s.notifier.Notify("Automatisering feilet",
			"Kunne ikke hente timeplandata. Logg inn på nytt og prøv igjen.", LevelError)
		return models.StatusFatalFetchFailure
	}

	s.setState("evaluating")
	today := models.DateString(s.clock.Now())

	studyCount := s.resolver.StudySessionCount(items, today)
	if studyCount == 0 {
		s.logger.Sugar().Infow("no study sessions today")
		s.notifier.Notify("Ingen STU-økter i dag",
			"Det er ingen STU-økter å registrere for i dag.", LevelInfo)
		return models.StatusNoSessionsFound
	}

	valid := uniqueByKey(s.resolver.ValidStudySessions(items, today))
	s.logger.Sugar().Infow("study sessions classified",
		"total", studyCount, "valid", len(valid))
	if len(valid) == 0 {
		s.notifier.Notify("Ingen gyldige STU-økter",
			"Alle STU-økter overlapper med andre klasser. Ingen registreringer vil bli gjort.", LevelWarning)
		return models.StatusAllConflict
	}

	// Already-registered sessions stay in the valid set for completion
	// bookkeeping; they are settled from the first cycle.
	done := map[string]bool{}
	registered := 0
	for key := range s.registry.LoadForToday() {
		for _, session := range valid {
			if session.SessionKey() == key {
				done[key] = true
				registered++
			}
		}
	}

	s.updateProgress(0, len(valid), registered, 0, 0)
	return s.poll(ctx, valid, done, registered)
}

func (s *AutomationService) poll(ctx context.Context, valid []models.ScheduleItem, done map[string]bool, registered int) models.TerminalStatus {
	cycle := 0
	for {
		if ctx.Err() != nil {
			return models.StatusCancelled
		}
		cycle++

		open, waiting, newlyRegistered, err := s.runCycle(ctx, valid, done)
		registered += newlyRegistered
		if err != nil {
			s.logger.Sugar().Errorw("poll cycle failed, retrying next interval",
				"cycle", cycle, "error", err)
		} else {
			s.metrics.RecordCycle(open, waiting)
			s.updateProgress(cycle, len(valid), registered, open, waiting)
			s.logger.Sugar().Infow("poll cycle complete",
				"cycle", cycle, "open", open, "waiting", waiting, "settled", len(done))

			if len(done) == len(valid) {
				if registered > 0 {
					s.notifier.Notify("Alle studietimer registrert",
						fmt.Sprintf("Alle %d gyldige STU-økter er håndtert for i dag.", len(valid)),
						LevelSuccess)
				}
				return models.StatusAllComplete
			}
		}

		select {
		case <-ctx.Done():
			return models.StatusCancelled
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// runCycle evaluates every unsettled session once, in stable start-time
// order. A panic inside one cycle is confined to that cycle; the loop sleeps
// and retries.
func (s *AutomationService) runCycle(ctx context.Context, valid []models.ScheduleItem, done map[string]bool) (open, waiting, registered int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	for _, session := range valid {
		if ctx.Err() != nil {
			return open, waiting, registered, nil
		}
		key := session.SessionKey()
		if done[key] {
			continue
		}

		switch EvaluateWindow(session.RegistrationWindow, s.clock.Now()) {
		case models.WindowNotYetOpen:
			waiting++
		case models.WindowClosed:
			// Window missed or already past; the portal itself has closed it.
			done[key] = true
		case models.WindowOpen:
			if s.register(ctx, session, key) {
				done[key] = true
				registered++
			} else {
				open++
			}
		}
	}
	return open, waiting, registered, nil
}

// register performs one registration attempt and reports whether the session
// is now settled.
func (s *AutomationService) register(ctx context.Context, session models.ScheduleItem, key string) bool {
	// Another agent instance may have registered it since the last load.
	if s.registry.IsRegistered(key) {
		return true
	}

	creds := s.credentials()
	// Stop() must not abort a registration already being sent; the client
	// timeout bounds the call instead.
	outcome := s.gateway.Register(context.WithoutCancel(ctx), creds.Scope, creds.Cookies, session)
	s.metrics.RecordRegistration(outcome)

	switch outcome {
	case models.RegistrationSuccess:
		s.registry.MarkRegistered(key)
		s.history.Append(repository.HistoryEntry{
			SessionKey:   key,
			Date:         session.Date,
			Subject:      session.SubjectCode,
			Start:        session.Start,
			End:          session.End,
			RegisteredAt: s.clock.Now(),
		})
		s.logger.Sugar().Infow("attendance registered", "session", key)
		s.notifier.Notify("Registrering vellykket",
			fmt.Sprintf("Registrert for STU %s-%s", session.Start, session.End), LevelSuccess)
		return true
	case models.RegistrationNetworkPolicyRejected:
		s.logger.Sugar().Warnw("registration requires school network", "session", key)
		s.notifier.NotifyThrottled("wrong-network", "Koble til skolens nettverk",
			fmt.Sprintf("Du må være tilkoblet skolens WiFi for å registrere STU %s-%s.", session.Start, session.End),
			LevelWarning)
		return false
	default:
		s.logger.Sugar().Warnw("registration failed, will retry next cycle", "session", key)
		return false
	}
}

// fetchTimetable retrieves the day's schedule, refreshing credentials on
// failure. Attempts are bounded and separated by a fixed delay; exhaustion
// is the loop's one fatal condition.
func (s *AutomationService) fetchTimetable(ctx context.Context) ([]models.ScheduleItem, error) {
	operation := func() ([]models.ScheduleItem, error) {
		creds := s.credentials()
		if creds.Valid() {
			items, ok := s.source.FetchToday(ctx, creds.Scope, creds.Cookies)
			s.metrics.RecordFetch(ok)
			if ok {
				return items, nil
			}
			s.logger.Sugar().Warnw("timetable fetch failed, refreshing credentials")
		}

		refreshed, outcome := s.auth.Authenticate(ctx)
		s.metrics.RecordReauth(outcome)
		if outcome == models.AuthSuccess {
			s.setCredentials(refreshed)
			items, ok := s.source.FetchToday(ctx, refreshed.Scope, refreshed.Cookies)
			s.metrics.RecordFetch(ok)
			if ok {
				return items, nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrFetchFailed, "")
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.cfg.RetryDelay)),
		backoff.WithMaxTries(uint(s.cfg.FetchRetries)+1))
}

func (s *AutomationService) credentials() models.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// SetCredentials seeds the run with known-good credentials, typically from
// the credential store at startup.
func (s *AutomationService) SetCredentials(creds models.Credentials) {
	s.setCredentials(creds)
}

func (s *AutomationService) setCredentials(creds models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
}

func (s *AutomationService) setState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *AutomationService) updateProgress(cycle, total, registered, open, waiting int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = "monitoring"
	s.cycle = cycle
	s.total = total
	s.registered = registered
	s.openCount = open
	s.waitingCount = waiting
}

// uniqueByKey collapses sessions sharing a time range. Equal ranges key the
// same registration target, so one record must settle them all.
func uniqueByKey(items []models.ScheduleItem) []models.ScheduleItem {
	seen := make(map[string]bool, len(items))
	out := make([]models.ScheduleItem, 0, len(items))
	for _, item := range items {
		key := item.SessionKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string, NotificationLevel)                  {}
func (noopNotifier) NotifyThrottled(string, string, string, NotificationLevel) {}

type noopHistory struct{}

func (noopHistory) Append(repository.HistoryEntry) {}
