package dto

import "time"

// AutomationStatus is the control API's view of the monitoring loop.
type AutomationStatus struct {
	Running        bool       `json:"running"`
	State          string     `json:"state"`
	Cycle          int        `json:"cycle"`
	TotalSessions  int        `json:"total_sessions"`
	Registered     int        `json:"registered"`
	OpenWindows    int        `json:"open_windows"`
	WaitingWindows int        `json:"waiting_windows"`
	LastStatus     string     `json:"last_status,omitempty"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	LifetimeCycles uint64     `json:"lifetime_cycles"`
	LifetimeRegs   uint64     `json:"lifetime_registrations"`
}
