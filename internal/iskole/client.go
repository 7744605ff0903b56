// Package iskole talks to the school portal's REST surface: the timetable
// listing and the attendance registration action.
package iskole

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cybergutta/akademitrack-agent/internal/models"
)

const (
	resourcePath = "/iskole_elev/rest/v0/VoTimeplan_elev_oppmote"
	actionType   = "application/vnd.oracle.adf.action+json"
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	// The portal reports an off-network caller inside a 2xx body.
	networkPolicyMarker = "Du må være koblet på skolens nettverk"

	// Attendance type submitted for self-registration: present.
	attendancePresent = "M"
)

// Config holds client endpoints and timeouts.
type Config struct {
	BaseURL     string
	PublicIPURL string
	Timeout     time.Duration
}

// Client implements the schedule source and registration gateway against the
// portal. Cookie expiry has no distinct protocol signal; it surfaces as a
// non-2xx status or an undecodable body, which callers treat as fetch
// failure.
type Client struct {
	http        *http.Client
	baseURL     string
	publicIPURL string
	logger      *zap.Logger
}

// NewClient builds a portal client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		publicIPURL: cfg.PublicIPURL,
		logger:      logger,
	}
}

// FetchToday retrieves the full-day timetable for the scoped student.
// ok=false covers transport errors, non-2xx statuses and undecodable bodies
// alike; an empty item list with ok=true means "no classes today".
func (c *Client) FetchToday(ctx context.Context, scope models.UserScope, cookies map[string]string) ([]models.ScheduleItem, bool) {
	if !scope.Complete() || len(cookies) == 0 {
		return nil, false
	}

	url := fmt.Sprintf(
		"%s%s;jsessionid=%s?finder=RESTFilter;fylkeid=%s,planperi=%s,skoleid=%s&onlyData=true&limit=99&offset=0&totalResults=true",
		c.baseURL, resourcePath, cookies["JSESSIONID"],
		scope.CountyID, scope.PlanPeriod, scope.SchoolID,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Sugar().Errorw("build timetable request", "error", err)
		return nil, false
	}
	c.decorate(req, cookies)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "no-NB")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Sugar().Warnw("timetable fetch failed", "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Sugar().Warnw("timetable fetch rejected", "status", resp.StatusCode)
		return nil, false
	}

	var schedule models.ScheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&schedule); err != nil {
		c.logger.Sugar().Warnw("timetable body undecodable", "error", err)
		return nil, false
	}
	return schedule.Items, true
}

// Register submits one attendance registration for the session. The payload
// carries the caller's public IP for the portal's anti-fraud check; if the
// lookup fails a loopback placeholder is sent rather than aborting.
func (c *Client) Register(ctx context.Context, scope models.UserScope, cookies map[string]string, session models.ScheduleItem) models.RegistrationOutcome {
	if !scope.Complete() || len(cookies) == 0 {
		return models.RegistrationFailed
	}

	url := fmt.Sprintf("%s%s;jsessionid=%s", c.baseURL, resourcePath, cookies["JSESSIONID"])

	payload := map[string]interface{}{
		"name": "lagre_oppmote",
		"parameters": []map[string]interface{}{
			{"fylkeid": scope.CountyID},
			{"skoleid": scope.SchoolID},
			{"planperi": scope.PlanPeriod},
			{"ansidato": session.Date},
			{"stkode": session.StageCode},
			{"kl_trinn": session.ClassLevel},
			{"kl_id": session.ClassID},
			{"k_navn": session.SubjectCode},
			{"gruppe_nr": session.GroupNumber},
			{"timenr": session.PeriodNumber},
			{"fravaerstype": attendancePresent},
			{"ip": c.PublicIP(ctx)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.logger.Sugar().Errorw("encode registration payload", "error", err)
		return models.RegistrationFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Sugar().Errorw("build registration request", "error", err)
		return models.RegistrationFailed
	}
	c.decorate(req, cookies)
	req.Header.Set("Content-Type", actionType)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", c.baseURL)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Sugar().Warnw("registration call failed", "session", session.SessionKey(), "error", err)
		return models.RegistrationFailed
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Sugar().Warnw("read registration response", "error", err)
		return models.RegistrationFailed
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Sugar().Warnw("registration rejected", "session", session.SessionKey(), "status", resp.StatusCode)
		return models.RegistrationFailed
	}
	if strings.Contains(string(content), networkPolicyMarker) {
		return models.RegistrationNetworkPolicyRejected
	}
	return models.RegistrationSuccess
}

// PublicIP resolves the caller's public address, degrading to loopback when
// the lookup service is unreachable.
func (c *Client) PublicIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.publicIPURL, nil)
	if err != nil {
		return "127.0.0.1"
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "127.0.0.1"
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "127.0.0.1"
	}
	ip, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil || len(ip) == 0 {
		return "127.0.0.1"
	}
	return strings.TrimSpace(string(ip))
}

// Probe checks basic connectivity to the portal before the first fetch.
func (c *Client) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func (c *Client) decorate(req *http.Request, cookies map[string]string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.baseURL+"/elev/?isFeideinnlogget=true&ojr=fravar")
	req.Header.Set("Cookie", cookieHeader(cookies))
}

func cookieHeader(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+cookies[name])
	}
	return strings.Join(pairs, "; ")
}
