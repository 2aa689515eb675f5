package loop

import (
	"testing"

	"github.com/loopboard/loopboard/internal/models"
)

func TestSend_MissingFrom(t *testing.T) {
	_, err := Send(nil, "", "builder", models.TypeUpdate, "hi", SendOpts{})
	if err == nil {
		t.Fatal("expected error for missing from")
	}
	if got := err.Error(); got != "loop: from is required" {
		t.Errorf("error = %q", got)
	}
}

func TestSend_MissingTo(t *testing.T) {
	_, err := Send(nil, "planner", "", models.TypeUpdate, "hi", SendOpts{})
	if err == nil {
		t.Fatal("expected error for missing to")
	}
	if got := err.Error(); got != "loop: to is required" {
		t.Errorf("error = %q", got)
	}
}

func TestSend_UnknownType(t *testing.T) {
	_, err := Send(nil, "planner", "builder", "carrier-pigeon", "hi", SendOpts{})
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestSend_DefaultType(t *testing.T) {
	db := testDB(t)
	msg, err := Send(db, "planner", "builder", "", "hi", SendOpts{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Type != models.TypeUpdate {
		t.Errorf("type = %q, want update", msg.Type)
	}
	if msg.StatusCode != models.StatusPending {
		t.Errorf("status = %v, want pending", msg.StatusCode)
	}
}

func TestInbox_MissingAgent(t *testing.T) {
	_, err := Inbox(nil, "")
	if err == nil {
		t.Fatal("expected error for missing agentName")
	}
}

func TestInbox_ExcludesClosedAndBroken(t *testing.T) {
	db := testDB(t)

	open := sendTo(t, db, "builder")
	closed := sendTo(t, db, "builder")
	broken := sendTo(t, db, "builder")
	sendTo(t, db, "someone-else")

	MarkSeen(db, closed.ID, "builder")
	MarkReplied(db, closed.ID)
	MarkActed(db, closed.ID, "builder", "")
	MarkReported(db, closed.ID, "builder", "done")
	MarkLoopBroken(db, broken.ID, "recipient decommissioned")

	msgs, err := Inbox(db, "builder")
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("inbox size = %d, want 1", len(msgs))
	}
	if msgs[0].ID != open.ID {
		t.Errorf("inbox contains message %d, want %d", msgs[0].ID, open.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := Get(db, 12345)
	if err == nil {
		t.Fatal("expected error for missing message")
	}
}
