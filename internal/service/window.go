package service

import (
	"time"

	"github.com/cybergutta/akademitrack-agent/internal/models"
)

// EvaluateWindow classifies a session's registration window against the
// given wall-clock instant. It is a pure function recomputed every poll;
// there is no transition memory. A session whose window is absent or
// unparsable can never be registered automatically and is always Closed.
func EvaluateWindow(registrationWindow string, at time.Time) models.WindowStatus {
	if registrationWindow == "" {
		return models.WindowClosed
	}

	open, closeAt, err := models.ParseWindow(registrationWindow)
	if err != nil {
		return models.WindowClosed
	}

	now := models.ClockOf(at)
	switch {
	case now < open:
		return models.WindowNotYetOpen
	case now <= closeAt:
		return models.WindowOpen
	default:
		return models.WindowClosed
	}
}
