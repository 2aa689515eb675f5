package loop

import (
	"fmt"
	"strings"
	"time"

	"github.com/loopboard/loopboard/internal/breach"
	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
)

// Every transition follows the same shape: fetch, check identity, no-op if
// the message is already at or past the target stage, then apply a guarded
// single-statement update keyed on "status_code < target". The guard makes
// the read-decide-write atomic per record, so concurrent calls can neither
// regress status nor double-set a stage timestamp or deadline. Losing the
// race is indistinguishable from arriving late and reports alreadyAtOrPast.

// Deliver advances a pending message to delivered. No SLA clock starts.
func Deliver(db *gorm.DB, messageID uint) (alreadyDelivered bool, err error) {
	msg, err := Get(db, messageID)
	if err != nil {
		return false, err
	}
	if msg.StatusCode.AtLeast(models.StatusDelivered) {
		return true, nil
	}

	result := db.Model(&models.Message{}).
		Where("id = ? AND status_code < ?", messageID, models.StatusDelivered).
		Update("status_code", models.StatusDelivered)
	if result.Error != nil {
		return false, fmt.Errorf("loop: deliver message %d: %w", messageID, result.Error)
	}
	return result.RowsAffected == 0, nil
}

// MarkSeen records that the recipient has seen the message and starts the
// reply clock. Only the recipient may call it.
func MarkSeen(db *gorm.DB, messageID uint, caller string) (alreadySeen bool, err error) {
	if caller == "" {
		return false, fmt.Errorf("loop: caller is required")
	}

	msg, err := Get(db, messageID)
	if err != nil {
		return false, err
	}
	if !isRecipient(db, caller, msg) {
		return false, fmt.Errorf("loop: mark seen message %d by %q: %w", messageID, caller, ErrPermissionDenied)
	}
	if msg.StatusCode.AtLeast(models.StatusSeen) {
		return true, nil
	}

	now := time.Now()
	replyBy := now.Add(ReplySLA)
	result := db.Model(&models.Message{}).
		Where("id = ? AND status_code < ?", messageID, models.StatusSeen).
		Updates(map[string]interface{}{
			"status_code":       models.StatusSeen,
			"seen_at":           now,
			"expected_reply_by": replyBy,
		})
	if result.Error != nil {
		return false, fmt.Errorf("loop: mark seen message %d: %w", messageID, result.Error)
	}
	return result.RowsAffected == 0, nil
}

// MarkReplied records the reply and starts the action clock. The reply's
// existence is proof of identity, so there is no caller check.
func MarkReplied(db *gorm.DB, messageID uint) (alreadyReplied bool, err error) {
	msg, err := Get(db, messageID)
	if err != nil {
		return false, err
	}
	if msg.StatusCode.AtLeast(models.StatusReplied) {
		return true, nil
	}

	now := time.Now()
	actionBy := now.Add(ActionSLA)
	result := db.Model(&models.Message{}).
		Where("id = ? AND status_code < ?", messageID, models.StatusReplied).
		Updates(map[string]interface{}{
			"status_code":        models.StatusReplied,
			"replied_at":         now,
			"expected_action_by": actionBy,
		})
	if result.Error != nil {
		return false, fmt.Errorf("loop: mark replied message %d: %w", messageID, result.Error)
	}
	return result.RowsAffected == 0, nil
}

// MarkActed records that the recipient has acted, starts the report clock,
// and resolves any open reply or action overdue alerts made obsolete by
// the progress. linkedTaskID is optional.
func MarkActed(db *gorm.DB, messageID uint, caller, linkedTaskID string) (alreadyActed bool, err error) {
	if caller == "" {
		return false, fmt.Errorf("loop: caller is required")
	}

	msg, err := Get(db, messageID)
	if err != nil {
		return false, err
	}
	if !isRecipient(db, caller, msg) {
		return false, fmt.Errorf("loop: mark acted message %d by %q: %w", messageID, caller, ErrPermissionDenied)
	}
	if msg.StatusCode.AtLeast(models.StatusActed) {
		return true, nil
	}

	now := time.Now()
	reportBy := now.Add(ReportSLA)
	fields := map[string]interface{}{
		"status_code":        models.StatusActed,
		"acted_at":           now,
		"expected_report_by": reportBy,
	}
	if linkedTaskID != "" {
		fields["linked_task_id"] = linkedTaskID
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Message{}).
			Where("id = ? AND status_code < ?", messageID, models.StatusActed).
			Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			alreadyActed = true
			return nil
		}
		_, rerr := breach.ResolveAlerts(tx, messageID,
			models.AlertReplyOverdue, models.AlertActionOverdue)
		return rerr
	})
	if err != nil {
		return false, fmt.Errorf("loop: mark acted message %d: %w", messageID, err)
	}
	return alreadyActed, nil
}

// MarkReported records the final report, closing the loop, and resolves
// every remaining open alert for the message.
func MarkReported(db *gorm.DB, messageID uint, caller, report string) (alreadyReported bool, err error) {
	if caller == "" {
		return false, fmt.Errorf("loop: caller is required")
	}

	msg, err := Get(db, messageID)
	if err != nil {
		return false, err
	}
	if !isRecipient(db, caller, msg) {
		return false, fmt.Errorf("loop: mark reported message %d by %q: %w", messageID, caller, ErrPermissionDenied)
	}
	if msg.StatusCode.AtLeast(models.StatusReported) {
		return true, nil
	}

	now := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Message{}).
			Where("id = ? AND status_code < ?", messageID, models.StatusReported).
			Updates(map[string]interface{}{
				"status_code":  models.StatusReported,
				"reported_at":  now,
				"final_report": report,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			alreadyReported = true
			return nil
		}
		_, rerr := breach.ResolveAlerts(tx, messageID)
		return rerr
	})
	if err != nil {
		return false, fmt.Errorf("loop: mark reported message %d: %w", messageID, err)
	}
	return alreadyReported, nil
}

// MarkLoopBroken declares that the normal lifecycle will not complete for
// legitimate reasons. Status is untouched; the message is permanently
// excluded from breach detection and a critical loop_broken alert is
// raised for the project-management role.
func MarkLoopBroken(db *gorm.DB, messageID uint, reason string) error {
	if reason == "" {
		return fmt.Errorf("loop: reason is required")
	}

	msg, err := Get(db, messageID)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Message{}).
			Where("id = ? AND loop_broken = ?", messageID, false).
			Updates(map[string]interface{}{
				"loop_broken":        true,
				"loop_broken_reason": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Already broken; the alert exists from the first call.
			return nil
		}
		_, _, cerr := breach.CreateAlert(tx, messageID, msg.ToAgent, models.AlertLoopBroken)
		return cerr
	})
	if err != nil {
		return fmt.Errorf("loop: mark loop broken message %d: %w", messageID, err)
	}
	return nil
}

// BatchFailure records one failed item of a batch operation.
type BatchFailure struct {
	MessageID uint
	Reason    string
}

// BatchResult is the structured partial-success result of a batch operation.
type BatchResult struct {
	// Marked counts messages newly marked, excluding ones already seen.
	Marked int
	Failed []BatchFailure
}

// MarkMultipleSeen applies MarkSeen to each message, continuing past
// per-item failures. One bad ID never aborts the rest of the batch.
func MarkMultipleSeen(db *gorm.DB, messageIDs []uint, caller string) (*BatchResult, error) {
	if caller == "" {
		return nil, fmt.Errorf("loop: caller is required")
	}

	result := &BatchResult{}
	for _, id := range messageIDs {
		already, err := MarkSeen(db, id, caller)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{MessageID: id, Reason: err.Error()})
			continue
		}
		if !already {
			result.Marked++
		}
	}
	return result, nil
}

// isRecipient reports whether caller identifies the message's recipient.
// Callers may use the agent's name (case-insensitive) or its ID.
func isRecipient(db *gorm.DB, caller string, msg *models.Message) bool {
	if strings.EqualFold(caller, msg.ToAgent) {
		return true
	}

	var agent models.Agent
	if err := db.Where("id = ?", caller).First(&agent).Error; err != nil {
		return false
	}
	return agent.ID == msg.ToAgent || strings.EqualFold(agent.Name, msg.ToAgent)
}
