// Package state manages the shared tkt state file.
//
// The state file (~/.local/state/tkt/state.json) records every ticket
// workspace tkt has built so they can be listed and updated by ticket. All
// access is serialized through file locking to allow safe concurrent access
// from multiple processes. Per-ticket lock files serialize workspace binding.
package state

import "time"

// State represents the persisted state file.
type State struct {
	Tickets map[string]TicketInfo `json:"tickets"`
}

// TicketStatus summarizes the last run against a ticket workspace.
type TicketStatus string

const (
	// TicketStatusReady indicates the last run fully succeeded.
	TicketStatusReady TicketStatus = "ready"
	// TicketStatusPartial indicates some repositories or editors failed.
	TicketStatusPartial TicketStatus = "partial"
	// TicketStatusFailed indicates the last run failed before completion.
	TicketStatusFailed TicketStatus = "failed"
)

// ValidTicketStatuses returns all valid ticket status values.
func ValidTicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusReady, TicketStatusPartial, TicketStatusFailed}
}

// IsValid returns true if the status is a known value.
func (s TicketStatus) IsValid() bool {
	for _, valid := range ValidTicketStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// TicketInfo stores information about a ticket workspace.
type TicketInfo struct {
	Ticket       string       `json:"ticket"`
	Path         string       `json:"path"`
	Environment  string       `json:"environment"`
	Branch       string       `json:"branch"`
	Metapackage  string       `json:"metapackage,omitempty"`
	Repositories []string     `json:"repositories"`
	Status       TicketStatus `json:"status"`
	LastRunID    string       `json:"last_run_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
