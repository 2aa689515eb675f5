package breach

import (
	"fmt"
	"log"
	"time"

	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
)

// ScanResult summarizes one scanner sweep.
type ScanResult struct {
	Scanned int
	Created []models.Alert
}

// Scan sweeps every open, unbroken message and raises an alert for each
// stage whose deadline has passed without the next stage occurring. The
// deadline check is strict: a message whose deadline equals now is not yet
// breached. A message missing the relevant deadline field never reached
// that stage and is skipped for that breach type. One message's bad state
// never aborts the sweep for the rest.
func Scan(db *gorm.DB, now time.Time) (*ScanResult, error) {
	var open []models.Message
	if err := db.Where("status_code < ? AND loop_broken = ?", models.StatusReported, false).
		Find(&open).Error; err != nil {
		return nil, fmt.Errorf("breach: scan query: %w", err)
	}

	result := &ScanResult{Scanned: len(open)}
	for _, msg := range open {
		for _, c := range breaches(msg, now) {
			alert, created, err := CreateAlert(db, msg.ID, msg.ToAgent, c)
			if err != nil {
				log.Printf("breach: message %d: %v", msg.ID, err)
				continue
			}
			if created {
				result.Created = append(result.Created, *alert)
			}
		}
	}
	return result, nil
}

// breaches returns the breach types message msg has incurred as of now.
func breaches(msg models.Message, now time.Time) []string {
	var out []string
	if msg.ExpectedReplyBy != nil && now.After(*msg.ExpectedReplyBy) &&
		!msg.StatusCode.AtLeast(models.StatusReplied) {
		out = append(out, models.AlertReplyOverdue)
	}
	if msg.ExpectedActionBy != nil && now.After(*msg.ExpectedActionBy) &&
		!msg.StatusCode.AtLeast(models.StatusActed) {
		out = append(out, models.AlertActionOverdue)
	}
	if msg.ExpectedReportBy != nil && now.After(*msg.ExpectedReportBy) &&
		!msg.StatusCode.AtLeast(models.StatusReported) {
		out = append(out, models.AlertReportOverdue)
	}
	return out
}
