// Package breach detects SLA breaches on loop messages and manages the
// resulting alerts.
package breach

import "github.com/loopboard/loopboard/internal/models"

// EscalateToPM is the project-management role accountable for missed
// replies that turned into missed actions and for broken loops.
const EscalateToPM = "pm"

// EscalateToOwner is the top-level stakeholder, accountable for missed
// final reports.
const EscalateToOwner = "owner"

// Policy describes how a breach type is ranked and who is accountable.
type Policy struct {
	Severity    string
	Status      string // alert status on creation
	EscalatedTo string // empty for non-escalated alerts
}

// Escalation maps a breach type to its severity, initial status, and
// escalation target. Pure table, no side effects.
func Escalation(alertType string) Policy {
	switch alertType {
	case models.AlertReplyOverdue:
		return Policy{Severity: models.SeverityWarning, Status: models.AlertActive}
	case models.AlertActionOverdue:
		return Policy{Severity: models.SeverityCritical, Status: models.AlertEscalated, EscalatedTo: EscalateToPM}
	case models.AlertReportOverdue:
		return Policy{Severity: models.SeverityCritical, Status: models.AlertEscalated, EscalatedTo: EscalateToOwner}
	case models.AlertLoopBroken:
		return Policy{Severity: models.SeverityCritical, Status: models.AlertEscalated, EscalatedTo: EscalateToPM}
	}
	// Unknown types rank as critical so a policy gap never hides a breach.
	return Policy{Severity: models.SeverityCritical, Status: models.AlertEscalated, EscalatedTo: EscalateToPM}
}
