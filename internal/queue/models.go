package queue

import "time"

const (
	StatusWaiting   = "waiting"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Entry is one student's claim on an assistant's single interaction slot.
// Entries are never deleted; completed/cancelled rows stay as history.
type Entry struct {
	ID              string    `gorm:"primaryKey;size:26" json:"id"` // ULID length
	AssistantID     string    `gorm:"type:varchar(26);not null;index:idx_queue_assistant_status,priority:1" json:"assistant_id"`
	StudentClientID string    `gorm:"type:varchar(64);not null;index" json:"student_client_id"`
	Status          string    `gorm:"type:varchar(16);not null;index:idx_queue_assistant_status,priority:2" json:"status"`
	Position        int       `gorm:"not null" json:"position"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Entry) TableName() string { return "session_queue" }

// Terminal reports whether the entry can no longer re-enter the line.
func (e *Entry) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusCancelled
}
