// Package loop implements the loop protocol: every inter-agent message
// moves through a fixed lifecycle (seen, replied, acted, reported) with an
// SLA deadline attached at each stage. This package is the only writer of
// lifecycle fields.
package loop

import (
	"errors"
	"fmt"
	"time"

	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
)

// Stage SLA durations. Each clock starts at the transition into the
// preceding stage.
const (
	ReplySLA  = 15 * time.Minute
	ActionSLA = 2 * time.Hour
	ReportSLA = 24 * time.Hour
)

// ErrNotFound is returned when an operation references a message that does
// not exist.
var ErrNotFound = errors.New("message not found")

// ErrPermissionDenied is returned when the caller is not the message's
// recipient on an identity-checked operation.
var ErrPermissionDenied = errors.New("caller is not the recipient")

// SendOpts holds optional parameters for sending a message.
type SendOpts struct {
	LinkedTaskID string
}

// Send creates a new pending message from one agent to another.
func Send(db *gorm.DB, from, to, msgType, content string, opts SendOpts) (*models.Message, error) {
	if from == "" {
		return nil, fmt.Errorf("loop: from is required")
	}
	if to == "" {
		return nil, fmt.Errorf("loop: to is required")
	}
	if msgType == "" {
		msgType = models.TypeUpdate
	}
	if !validType(msgType) {
		return nil, fmt.Errorf("loop: unknown message type %q", msgType)
	}

	msg := models.Message{
		FromAgent:    from,
		ToAgent:      to,
		Type:         msgType,
		Content:      content,
		StatusCode:   models.StatusPending,
		LinkedTaskID: opts.LinkedTaskID,
		CreatedAt:    time.Now(),
	}

	if err := db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("loop: send: %w", err)
	}
	return &msg, nil
}

// Get fetches a single message.
func Get(db *gorm.DB, messageID uint) (*models.Message, error) {
	var msg models.Message
	if err := db.First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("loop: message %d: %w", messageID, ErrNotFound)
		}
		return nil, fmt.Errorf("loop: get message %d: %w", messageID, err)
	}
	return &msg, nil
}

// Inbox returns open loops addressed to an agent, ordered by creation time.
func Inbox(db *gorm.DB, agentName string) ([]models.Message, error) {
	if agentName == "" {
		return nil, fmt.Errorf("loop: agentName is required")
	}

	var msgs []models.Message
	if err := db.Where("to_agent = ? AND status_code < ? AND loop_broken = ?",
		agentName, models.StatusReported, false).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("loop: inbox %s: %w", agentName, err)
	}
	return msgs, nil
}

func validType(t string) bool {
	switch t {
	case models.TypeHandoff, models.TypeUpdate, models.TypeRequest, models.TypeFYI:
		return true
	}
	return false
}
