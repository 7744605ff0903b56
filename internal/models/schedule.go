package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StudyMarker identifies flexible-study periods in the timetable. Sessions
// whose subject code carries this marker are the only ones the agent may
// self-register attendance for.
const StudyMarker = "STU"

// ScheduleItem is one timetabled period as returned by the portal timetable
// endpoint. Field names follow the portal's JSON payload.
type ScheduleItem struct {
	ID                 int    `json:"id"`
	Subject            string `json:"fag"`
	StageCode          string `json:"stkode"`
	ClassLevel         string `json:"klTrinn"`
	ClassID            string `json:"klId"`
	SubjectCode        string `json:"kNavn"`
	GroupNumber        string `json:"gruppeNr"`
	Date               string `json:"dato"`
	Start              string `json:"startKl"`
	End                string `json:"sluttKl"`
	TeachingInProgress int    `json:"undervisningPaagaar"`
	AbsenceType        string `json:"typefravaer"`
	SelfRegistration   int    `json:"elevForerTilstedevaerelse"`
	Collision          int    `json:"kollisjon"`
	RegistrationWindow string `json:"tidsromTilstedevaerelse"`
	PeriodNumber       int    `json:"timenr"`
}

// ScheduleResponse wraps the portal's timetable listing.
type ScheduleResponse struct {
	Items []ScheduleItem `json:"items"`
}

// IsStudySession reports whether the item is a flexible-study period.
func (s ScheduleItem) IsStudySession() bool {
	return strings.Contains(s.SubjectCode, StudyMarker)
}

// SessionKey returns the dedup identity of the session within one calendar
// day. The portal exposes no stable external id for a registration target
// before submission, so two sessions with the same time range are the same
// session. Clock strings are normalized to HHmm so "08:15" and "0815" key
// identically.
func (s ScheduleItem) SessionKey() string {
	return normalizeClock(s.Start) + "-" + normalizeClock(s.End)
}

// TimeRange parses the session's start and end clocks.
func (s ScheduleItem) TimeRange() (start, end time.Duration, err error) {
	start, err = ParseClock(s.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err = ParseClock(s.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func normalizeClock(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ":", "")
}

// ParseClock converts a portal clock string ("08:15" or "0815") into a
// time-of-day offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hh, mm = parts[0], parts[1]
	case len(s) == 4:
		hh, mm = s[:2], s[2:]
	case len(s) == 3:
		hh, mm = s[:1], s[1:]
	default:
		return 0, fmt.Errorf("invalid clock %q", s)
	}

	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// ParseWindow splits a registration window string ("HH:mm - HH:mm") into its
// opening and closing clocks.
func ParseWindow(s string) (open, closeAt time.Duration, err error) {
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid registration window %q", s)
	}
	open, err = ParseClock(parts[0])
	if err != nil {
		return 0, 0, err
	}
	closeAt, err = ParseClock(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return open, closeAt, nil
}

// ClockOf projects a wall-clock instant onto a time-of-day offset, the
// domain all window and overlap comparisons happen in.
func ClockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

// DateString formats a calendar day the way the portal encodes it.
func DateString(t time.Time) string {
	return t.Format("20060102")
}
