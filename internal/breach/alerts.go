package breach

import (
	"fmt"
	"time"

	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dedupKey builds the uniqueness key held by non-resolved alerts.
func dedupKey(messageID uint, alertType string) string {
	return fmt.Sprintf("%d:%s", messageID, alertType)
}

// CreateAlert inserts an alert for the given message and breach type unless
// a non-resolved alert with the same (messageID, alertType) already exists.
// The insert-if-absent is a single statement against the dedup_key unique
// index, so concurrent scanner runs cannot double-fire.
// Returns the alert and whether it was newly created.
func CreateAlert(db *gorm.DB, messageID uint, agentName, alertType string) (*models.Alert, bool, error) {
	if messageID == 0 {
		return nil, false, fmt.Errorf("breach: messageID is required")
	}
	if agentName == "" {
		return nil, false, fmt.Errorf("breach: agentName is required")
	}

	pol := Escalation(alertType)
	key := dedupKey(messageID, alertType)
	alert := models.Alert{
		MessageID:   messageID,
		AgentName:   agentName,
		AlertType:   alertType,
		Severity:    pol.Severity,
		Status:      pol.Status,
		EscalatedTo: pol.EscalatedTo,
		DedupKey:    &key,
		CreatedAt:   time.Now(),
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&alert)
	if result.Error != nil {
		return nil, false, fmt.Errorf("breach: create alert %s for message %d: %w", alertType, messageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return &alert, true, nil
}

// ResolveAlerts marks non-resolved alerts for a message as resolved,
// clearing the dedup key so a future breach can alert again. With no types
// given, all of the message's open alerts resolve. Returns the number of
// alerts resolved.
func ResolveAlerts(db *gorm.DB, messageID uint, alertTypes ...string) (int64, error) {
	if messageID == 0 {
		return 0, fmt.Errorf("breach: messageID is required")
	}

	now := time.Now()
	q := db.Model(&models.Alert{}).
		Where("message_id = ? AND status IN ?", messageID, []string{models.AlertActive, models.AlertEscalated})
	if len(alertTypes) > 0 {
		q = q.Where("alert_type IN ?", alertTypes)
	}

	result := q.Updates(map[string]interface{}{
		"status":      models.AlertResolved,
		"resolved_at": now,
		"dedup_key":   nil,
	})
	if result.Error != nil {
		return 0, fmt.Errorf("breach: resolve alerts for message %d: %w", messageID, result.Error)
	}
	return result.RowsAffected, nil
}

// ListFilters narrows ListAlerts results. Zero values mean "any".
type ListFilters struct {
	AgentName string
	AlertType string
	Status    string
}

// ListAlerts returns alerts matching the filters, newest first. With no
// status filter it returns only non-resolved alerts (the dashboard's
// default view).
func ListAlerts(db *gorm.DB, f ListFilters) ([]models.Alert, error) {
	q := db.Model(&models.Alert{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	} else {
		q = q.Where("status IN ?", []string{models.AlertActive, models.AlertEscalated})
	}
	if f.AgentName != "" {
		q = q.Where("agent_name = ?", f.AgentName)
	}
	if f.AlertType != "" {
		q = q.Where("alert_type = ?", f.AlertType)
	}

	var alerts []models.Alert
	if err := q.Order("created_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("breach: list alerts: %w", err)
	}
	return alerts, nil
}
