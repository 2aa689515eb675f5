package models

import "time"

// Alert type values.
const (
	AlertReplyOverdue  = "reply_overdue"
	AlertActionOverdue = "action_overdue"
	AlertReportOverdue = "report_overdue"
	AlertLoopBroken    = "loop_broken"
)

// Alert severity values.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert status values.
const (
	AlertActive    = "active"
	AlertEscalated = "escalated"
	AlertResolved  = "resolved"
)

// Alert is a durable record of an SLA breach. DedupKey holds
// "<messageID>:<alertType>" while the alert is active or escalated and is
// cleared to NULL on resolution, so the unique index admits at most one
// non-resolved alert per message and type.
type Alert struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	MessageID   uint    `gorm:"not null;index"`
	AgentName   string  `gorm:"size:64;not null;index"`
	AlertType   string  `gorm:"size:16;not null"`
	Severity    string  `gorm:"size:8;not null"`
	Status      string  `gorm:"size:10;not null;index"`
	EscalatedTo string  `gorm:"size:64"`
	DedupKey    *string `gorm:"size:48;uniqueIndex"`
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// Open reports whether the alert is still active or escalated.
func (a Alert) Open() bool {
	return a.Status == AlertActive || a.Status == AlertEscalated
}
