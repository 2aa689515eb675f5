package models

// Status is a message's position in the loop lifecycle. Values order
// strictly, so stage comparisons are plain integer comparisons and a
// transition can never move a message backwards.
type Status int

const (
	StatusPending   Status = 0
	StatusDelivered Status = 1
	StatusSeen      Status = 2
	StatusReplied   Status = 3
	StatusActed     Status = 4
	StatusReported  Status = 5
)

// AtLeast reports whether s has reached or passed other.
func (s Status) AtLeast(other Status) bool {
	return s >= other
}

// Terminal reports whether s is the final lifecycle stage.
func (s Status) Terminal() bool {
	return s == StatusReported
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDelivered:
		return "delivered"
	case StatusSeen:
		return "seen"
	case StatusReplied:
		return "replied"
	case StatusActed:
		return "acted"
	case StatusReported:
		return "reported"
	}
	return "unknown"
}
