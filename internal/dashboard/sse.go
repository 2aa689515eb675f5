package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
)

// alertEvent holds data for an alert SSE event.
type alertEvent struct {
	ID          uint   `json:"id"`
	MessageID   uint   `json:"message_id"`
	AgentName   string `json:"agent_name"`
	AlertType   string `json:"alert_type"`
	Severity    string `json:"severity"`
	EscalatedTo string `json:"escalated_to,omitempty"`
	Count       int64  `json:"count"`
}

// handleSSE streams newly created alerts. The core never pushes; this
// handler polls the alert table by last-seen ID, so dashboard liveness is
// decoupled from transition and scanner correctness.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		// Send connected event.
		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Start from the current max ID so only NEW alerts stream out.
		var lastSeenID uint
		var maxAlert models.Alert
		if err := db.Order("id DESC").Limit(1).First(&maxAlert).Error; err == nil {
			lastSeenID = maxAlert.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var newAlerts []models.Alert
				db.Where("id > ?", lastSeenID).Order("id ASC").Find(&newAlerts)
				if len(newAlerts) == 0 {
					continue
				}
				lastSeenID = newAlerts[len(newAlerts)-1].ID

				var count int64
				db.Model(&models.Alert{}).
					Where("status IN ?", []string{models.AlertActive, models.AlertEscalated}).
					Count(&count)

				for _, a := range newAlerts {
					writeSSE(c.Writer, "alert", alertEvent{
						ID:          a.ID,
						MessageID:   a.MessageID,
						AgentName:   a.AgentName,
						AlertType:   a.AlertType,
						Severity:    a.Severity,
						EscalatedTo: a.EscalatedTo,
						Count:       count,
					})
				}
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event frame.
func writeSSE(w io.Writer, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
