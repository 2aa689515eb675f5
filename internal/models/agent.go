package models

import "time"

// Agent is a registered fleet member. Messages address agents by name;
// transition callers may identify themselves by either name or ID.
type Agent struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:64;not null;uniqueIndex"`
	Role      string `gorm:"size:16"`
	CreatedAt time.Time
}
