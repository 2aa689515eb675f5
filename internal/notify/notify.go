// Package notify pushes newly raised breach alerts to chat platforms.
package notify

import (
	"context"
	"fmt"

	"github.com/loopboard/loopboard/internal/models"
)

// Notifier is implemented by each platform-specific alert sink.
type Notifier interface {
	// Name identifies the platform (e.g. "slack", "discord") for logging.
	Name() string

	// Notify delivers a single alert to the platform.
	Notify(ctx context.Context, alert models.Alert) error
}

// Title renders the alert headline shown in chat.
func Title(alert models.Alert) string {
	return fmt.Sprintf("[%s] %s on message %d", alert.Severity, alert.AlertType, alert.MessageID)
}

// Body renders the alert detail text.
func Body(alert models.Alert) string {
	s := fmt.Sprintf("Agent %s missed the %s deadline.", alert.AgentName, stageName(alert.AlertType))
	if alert.EscalatedTo != "" {
		s += fmt.Sprintf(" Escalated to %s.", alert.EscalatedTo)
	}
	return s
}

// SeverityColor maps severity to a sidebar color hint.
func SeverityColor(severity string) string {
	if severity == models.SeverityCritical {
		return "#d92b2b"
	}
	return "#e8a33d"
}

func stageName(alertType string) string {
	switch alertType {
	case models.AlertReplyOverdue:
		return "reply"
	case models.AlertActionOverdue:
		return "action"
	case models.AlertReportOverdue:
		return "report"
	case models.AlertLoopBroken:
		return "loop"
	}
	return alertType
}
