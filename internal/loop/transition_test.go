package loop

import (
	"errors"
	"testing"
	"time"

	"github.com/loopboard/loopboard/internal/breach"
	"github.com/loopboard/loopboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Agent{},
		&models.Message{},
		&models.Alert{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// sendTo creates a delivered message addressed to the given agent.
func sendTo(t *testing.T, db *gorm.DB, to string) *models.Message {
	t.Helper()
	msg, err := Send(db, "planner", to, models.TypeRequest, "review the rollout plan", SendOpts{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := Deliver(db, msg.ID); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return msg
}

func reload(t *testing.T, db *gorm.DB, id uint) *models.Message {
	t.Helper()
	msg, err := Get(db, id)
	if err != nil {
		t.Fatalf("reload message %d: %v", id, err)
	}
	return msg
}

func TestMarkSeen_SetsDeadline(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")

	already, err := MarkSeen(db, msg.ID, "builder")
	if err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	if already {
		t.Error("first MarkSeen reported alreadySeen")
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusSeen {
		t.Errorf("status = %v, want seen", got.StatusCode)
	}
	if got.SeenAt == nil || got.ExpectedReplyBy == nil {
		t.Fatal("seenAt or expectedReplyBy not set")
	}
	if d := got.ExpectedReplyBy.Sub(*got.SeenAt); d != ReplySLA {
		t.Errorf("expectedReplyBy - seenAt = %s, want %s", d, ReplySLA)
	}
}

func TestMarkSeen_Idempotent(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")

	if _, err := MarkSeen(db, msg.ID, "builder"); err != nil {
		t.Fatalf("first mark seen: %v", err)
	}
	first := reload(t, db, msg.ID)

	already, err := MarkSeen(db, msg.ID, "builder")
	if err != nil {
		t.Fatalf("second mark seen: %v", err)
	}
	if !already {
		t.Error("second MarkSeen did not report alreadySeen")
	}

	second := reload(t, db, msg.ID)
	if !second.SeenAt.Equal(*first.SeenAt) {
		t.Error("seenAt changed on repeated MarkSeen")
	}
	if !second.ExpectedReplyBy.Equal(*first.ExpectedReplyBy) {
		t.Error("expectedReplyBy changed on repeated MarkSeen")
	}
}

func TestMarkSeen_CaseInsensitiveName(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "Builder")

	if _, err := MarkSeen(db, msg.ID, "bUILDER"); err != nil {
		t.Fatalf("case-insensitive name match rejected: %v", err)
	}
}

func TestMarkSeen_AgentIDMatch(t *testing.T) {
	db := testDB(t)
	db.Create(&models.Agent{ID: "agent-7", Name: "builder", Role: "worker"})
	msg := sendTo(t, db, "builder")

	if _, err := MarkSeen(db, msg.ID, "agent-7"); err != nil {
		t.Fatalf("agent ID match rejected: %v", err)
	}
}

func TestMarkSeen_PermissionDenied(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")

	_, err := MarkSeen(db, msg.ID, "intruder")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusDelivered {
		t.Errorf("status changed on denied call: %v", got.StatusCode)
	}
}

func TestMarkSeen_NotFound(t *testing.T) {
	db := testDB(t)

	_, err := MarkSeen(db, 999, "builder")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkReplied_SetsDeadline(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")
	MarkSeen(db, msg.ID, "builder")

	already, err := MarkReplied(db, msg.ID)
	if err != nil {
		t.Fatalf("mark replied: %v", err)
	}
	if already {
		t.Error("first MarkReplied reported already")
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusReplied {
		t.Errorf("status = %v, want replied", got.StatusCode)
	}
	if got.RepliedAt == nil || got.ExpectedActionBy == nil {
		t.Fatal("repliedAt or expectedActionBy not set")
	}
	if d := got.ExpectedActionBy.Sub(*got.RepliedAt); d != ActionSLA {
		t.Errorf("expectedActionBy - repliedAt = %s, want %s", d, ActionSLA)
	}
}

func TestMarkActed_SetsDeadlineAndTask(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")
	MarkSeen(db, msg.ID, "builder")
	MarkReplied(db, msg.ID)

	already, err := MarkActed(db, msg.ID, "builder", "task-42")
	if err != nil {
		t.Fatalf("mark acted: %v", err)
	}
	if already {
		t.Error("first MarkActed reported already")
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusActed {
		t.Errorf("status = %v, want acted", got.StatusCode)
	}
	if got.ActedAt == nil || got.ExpectedReportBy == nil {
		t.Fatal("actedAt or expectedReportBy not set")
	}
	if d := got.ExpectedReportBy.Sub(*got.ActedAt); d != ReportSLA {
		t.Errorf("expectedReportBy - actedAt = %s, want %s", d, ReportSLA)
	}
	if got.LinkedTaskID != "task-42" {
		t.Errorf("linkedTaskID = %q, want task-42", got.LinkedTaskID)
	}
}

func TestMarkActed_ResolvesOverdueAlerts(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")
	MarkSeen(db, msg.ID, "builder")

	if _, _, err := breach.CreateAlert(db, msg.ID, "builder", models.AlertReplyOverdue); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	MarkReplied(db, msg.ID)
	if _, err := MarkActed(db, msg.ID, "builder", ""); err != nil {
		t.Fatalf("mark acted: %v", err)
	}

	var alert models.Alert
	if err := db.Where("message_id = ?", msg.ID).First(&alert).Error; err != nil {
		t.Fatalf("load alert: %v", err)
	}
	if alert.Status != models.AlertResolved {
		t.Errorf("alert status = %q, want resolved", alert.Status)
	}
	if alert.ResolvedAt == nil {
		t.Error("resolvedAt not set")
	}
	if alert.DedupKey != nil {
		t.Error("dedup key not cleared on resolve")
	}
}

func TestMarkReported_ResolvesAllAlerts(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")
	MarkSeen(db, msg.ID, "builder")
	MarkReplied(db, msg.ID)
	MarkActed(db, msg.ID, "builder", "")

	breach.CreateAlert(db, msg.ID, "builder", models.AlertReportOverdue)

	already, err := MarkReported(db, msg.ID, "builder", "done: rollout reviewed")
	if err != nil {
		t.Fatalf("mark reported: %v", err)
	}
	if already {
		t.Error("first MarkReported reported already")
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusReported {
		t.Errorf("status = %v, want reported", got.StatusCode)
	}
	if got.FinalReport != "done: rollout reviewed" {
		t.Errorf("finalReport = %q", got.FinalReport)
	}

	var open int64
	db.Model(&models.Alert{}).
		Where("message_id = ? AND status IN ?", msg.ID,
			[]string{models.AlertActive, models.AlertEscalated}).
		Count(&open)
	if open != 0 {
		t.Errorf("%d alerts still open after report", open)
	}
}

func TestMarkLoopBroken_CreatesEscalatedAlert(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")
	MarkSeen(db, msg.ID, "builder")

	if err := MarkLoopBroken(db, msg.ID, "dependency unavailable"); err != nil {
		t.Fatalf("mark loop broken: %v", err)
	}

	got := reload(t, db, msg.ID)
	if !got.LoopBroken {
		t.Error("loopBroken not set")
	}
	if got.LoopBrokenReason != "dependency unavailable" {
		t.Errorf("reason = %q", got.LoopBrokenReason)
	}
	if got.StatusCode != models.StatusSeen {
		t.Errorf("status changed by break: %v", got.StatusCode)
	}

	var alert models.Alert
	if err := db.Where("message_id = ? AND alert_type = ?", msg.ID, models.AlertLoopBroken).
		First(&alert).Error; err != nil {
		t.Fatalf("loop_broken alert missing: %v", err)
	}
	if alert.Severity != models.SeverityCritical {
		t.Errorf("severity = %q, want critical", alert.Severity)
	}
	if alert.Status != models.AlertEscalated {
		t.Errorf("status = %q, want escalated", alert.Status)
	}
	if alert.EscalatedTo != "pm" {
		t.Errorf("escalatedTo = %q, want pm", alert.EscalatedTo)
	}
}

func TestMarkLoopBroken_Idempotent(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")

	MarkLoopBroken(db, msg.ID, "dependency unavailable")
	if err := MarkLoopBroken(db, msg.ID, "still unavailable"); err != nil {
		t.Fatalf("second break errored: %v", err)
	}

	got := reload(t, db, msg.ID)
	if got.LoopBrokenReason != "dependency unavailable" {
		t.Errorf("reason overwritten: %q", got.LoopBrokenReason)
	}

	var count int64
	db.Model(&models.Alert{}).
		Where("message_id = ? AND alert_type = ?", msg.ID, models.AlertLoopBroken).
		Count(&count)
	if count != 1 {
		t.Errorf("loop_broken alerts = %d, want 1", count)
	}
}

func TestStatus_Monotonic(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")

	MarkSeen(db, msg.ID, "builder")
	MarkReplied(db, msg.ID)
	MarkActed(db, msg.ID, "builder", "")
	MarkReported(db, msg.ID, "builder", "done")

	// Replaying earlier transitions in any order must not regress.
	calls := []func() (bool, error){
		func() (bool, error) { return MarkSeen(db, msg.ID, "builder") },
		func() (bool, error) { return Deliver(db, msg.ID) },
		func() (bool, error) { return MarkReplied(db, msg.ID) },
		func() (bool, error) { return MarkActed(db, msg.ID, "builder", "") },
	}
	for i, call := range calls {
		already, err := call()
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		if !already {
			t.Errorf("replay %d did not report alreadyAtOrPast", i)
		}
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusReported {
		t.Errorf("status regressed to %v", got.StatusCode)
	}
}

func TestMarkMultipleSeen_PartialSuccess(t *testing.T) {
	db := testDB(t)
	m1 := sendTo(t, db, "builder")
	m2 := sendTo(t, db, "builder")
	m3 := sendTo(t, db, "other-agent")

	// m2 already seen; 999 does not exist; m3 belongs to another agent.
	MarkSeen(db, m2.ID, "builder")

	result, err := MarkMultipleSeen(db, []uint{m1.ID, m2.ID, 999, m3.ID}, "builder")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	if result.Marked != 1 {
		t.Errorf("marked = %d, want 1 (already-seen excluded)", result.Marked)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failed = %d, want 2", len(result.Failed))
	}
	if result.Failed[0].MessageID != 999 {
		t.Errorf("first failure ID = %d, want 999", result.Failed[0].MessageID)
	}
	if result.Failed[1].MessageID != m3.ID {
		t.Errorf("second failure ID = %d, want %d", result.Failed[1].MessageID, m3.ID)
	}

	// The batch continued past failures: m1 is seen.
	if got := reload(t, db, m1.ID); got.StatusCode != models.StatusSeen {
		t.Errorf("m1 status = %v, want seen", got.StatusCode)
	}
}

func TestDeliver(t *testing.T) {
	db := testDB(t)
	msg, err := Send(db, "planner", "builder", models.TypeHandoff, "take over", SendOpts{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	already, err := Deliver(db, msg.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if already {
		t.Error("first Deliver reported already")
	}

	got := reload(t, db, msg.ID)
	if got.StatusCode != models.StatusDelivered {
		t.Errorf("status = %v, want delivered", got.StatusCode)
	}
	if got.ExpectedReplyBy != nil {
		t.Error("deliver must not start an SLA clock")
	}

	already, err = Deliver(db, msg.ID)
	if err != nil || !already {
		t.Errorf("second Deliver = (%v, %v), want (true, nil)", already, err)
	}
}

func TestDeadlines_SetOnce(t *testing.T) {
	db := testDB(t)
	msg := sendTo(t, db, "builder")

	MarkSeen(db, msg.ID, "builder")
	first := reload(t, db, msg.ID)

	time.Sleep(5 * time.Millisecond)
	MarkSeen(db, msg.ID, "builder")
	MarkMultipleSeen(db, []uint{msg.ID}, "builder")

	second := reload(t, db, msg.ID)
	if !second.ExpectedReplyBy.Equal(*first.ExpectedReplyBy) {
		t.Error("expectedReplyBy was overwritten")
	}
}
