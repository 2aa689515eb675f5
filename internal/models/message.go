package models

import "time"

// Message type values.
const (
	TypeHandoff = "handoff"
	TypeUpdate  = "update"
	TypeRequest = "request"
	TypeFYI     = "fyi"
)

// Message represents agent-to-agent communication tracked by the loop
// protocol. Stage timestamps are set exactly once, at the transition into
// the stage; each deadline is set by the transition that starts its clock.
type Message struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	FromAgent string `gorm:"size:64;not null;index"`
	ToAgent   string `gorm:"size:64;not null;index"`
	Type      string `gorm:"size:16;default:update"`
	Content   string `gorm:"type:text"`

	StatusCode Status `gorm:"not null;default:0;index"`

	SeenAt     *time.Time
	RepliedAt  *time.Time
	ActedAt    *time.Time
	ReportedAt *time.Time

	ExpectedReplyBy  *time.Time `gorm:"index"`
	ExpectedActionBy *time.Time `gorm:"index"`
	ExpectedReportBy *time.Time `gorm:"index"`

	// LoopBroken permanently excludes the message from breach detection.
	LoopBroken       bool   `gorm:"default:false;index"`
	LoopBrokenReason string `gorm:"size:256"`

	LinkedTaskID string `gorm:"size:32"`
	FinalReport  string `gorm:"type:text"`

	CreatedAt time.Time
}
