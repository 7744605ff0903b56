package models

import "time"

// WindowStatus classifies a session's registration window against the
// current wall clock. It is derived every poll, never stored.
type WindowStatus int

const (
	WindowNotYetOpen WindowStatus = iota
	WindowOpen
	WindowClosed
)

func (w WindowStatus) String() string {
	switch w {
	case WindowNotYetOpen:
		return "not_yet_open"
	case WindowOpen:
		return "open"
	case WindowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RegistrationOutcome is the result of one registration call.
type RegistrationOutcome int

const (
	// RegistrationSuccess means the portal accepted the attendance record.
	RegistrationSuccess RegistrationOutcome = iota
	// RegistrationNetworkPolicyRejected means the portal refused because the
	// caller is not on an approved network. User-actionable, not retryable.
	RegistrationNetworkPolicyRejected
	// RegistrationFailed covers every other error; the next poll retries.
	RegistrationFailed
)

func (r RegistrationOutcome) String() string {
	switch r {
	case RegistrationSuccess:
		return "success"
	case RegistrationNetworkPolicyRejected:
		return "network_policy_rejected"
	case RegistrationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AuthOutcome is the result of one credential refresh through the
// authentication collaborator. Recovery logic branches on this value.
type AuthOutcome int

const (
	AuthSuccess AuthOutcome = iota
	AuthInvalidCredentials
	AuthTransientFailure
)

func (a AuthOutcome) String() string {
	switch a {
	case AuthSuccess:
		return "success"
	case AuthInvalidCredentials:
		return "invalid_credentials"
	case AuthTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// TerminalStatus is the final state of one monitoring run. Nothing else
// escapes the loop to its caller.
type TerminalStatus string

const (
	StatusNoSessionsFound   TerminalStatus = "no_sessions_found"
	StatusAllConflict       TerminalStatus = "all_conflict"
	StatusAllComplete       TerminalStatus = "all_complete"
	StatusFatalFetchFailure TerminalStatus = "fatal_fetch_failure"
	StatusCancelled         TerminalStatus = "cancelled"
)

// UserScope carries the three opaque identifiers that scope every remote
// timetable and registration call.
type UserScope struct {
	CountyID   string `json:"fylkeid" validate:"required"`
	PlanPeriod string `json:"planperi" validate:"required"`
	SchoolID   string `json:"skoleid" validate:"required"`
}

// Complete reports whether every scope identifier is present. No remote call
// may be attempted against an incomplete scope.
func (s UserScope) Complete() bool {
	return s.CountyID != "" && s.PlanPeriod != "" && s.SchoolID != ""
}

// Credentials bundles the session cookie set with the scope it was issued
// for, as produced by the login collaborator.
type Credentials struct {
	Cookies map[string]string `json:"cookies"`
	Scope   UserScope         `json:"scope"`
}

// Valid reports whether the credentials can drive remote calls at all.
func (c Credentials) Valid() bool {
	return len(c.Cookies) > 0 && c.Scope.Complete()
}

// RegistrationRecord is the persisted fact "session was registered at T".
type RegistrationRecord struct {
	SessionKey   string    `json:"session_key"`
	RegisteredAt time.Time `json:"registered_at"`
}
