package dashboard

import (
	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/gorm"
)

// OpenLoops returns every message still inside the loop lifecycle,
// oldest first so the longest-running loops surface at the top.
func OpenLoops(db *gorm.DB) ([]models.Message, error) {
	var msgs []models.Message
	if err := db.Where("status_code < ?", models.StatusReported).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// AgentRow holds per-agent loop and alert counts for display.
type AgentRow struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	OpenLoops     int64  `json:"open_loops"`
	BrokenLoops   int64  `json:"broken_loops"`
	ActiveAlerts  int64  `json:"active_alerts"`
	CriticalCount int64  `json:"critical_alerts"`
}

// AgentSummary returns one row per registered agent with its open-loop and
// non-resolved alert counts.
func AgentSummary(db *gorm.DB) ([]AgentRow, error) {
	var agents []models.Agent
	if err := db.Order("name ASC").Find(&agents).Error; err != nil {
		return nil, err
	}

	rows := make([]AgentRow, 0, len(agents))
	for _, agent := range agents {
		row := AgentRow{Name: agent.Name, Role: agent.Role}

		if err := db.Model(&models.Message{}).
			Where("to_agent = ? AND status_code < ? AND loop_broken = ?",
				agent.Name, models.StatusReported, false).
			Count(&row.OpenLoops).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&models.Message{}).
			Where("to_agent = ? AND loop_broken = ?", agent.Name, true).
			Count(&row.BrokenLoops).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&models.Alert{}).
			Where("agent_name = ? AND status IN ?",
				agent.Name, []string{models.AlertActive, models.AlertEscalated}).
			Count(&row.ActiveAlerts).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&models.Alert{}).
			Where("agent_name = ? AND status IN ? AND severity = ?",
				agent.Name, []string{models.AlertActive, models.AlertEscalated},
				models.SeverityCritical).
			Count(&row.CriticalCount).Error; err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}
	return rows, nil
}
