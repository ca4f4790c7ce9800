package session

import "time"

const (
	StatusQueued    = "queued"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusEscalated = "escalated"
)

// Session is one live student/assistant interaction. Escalation moves a
// session to escalated (terminal) without touching the admission queue; the
// assistant's slot is only freed by an explicit queue completion.
type Session struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID       string     `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	AssistantID     string     `gorm:"type:varchar(26);not null;index" json:"assistant_id"`
	StudentID       string     `gorm:"type:varchar(26);not null;index" json:"student_id"`
	Status          string     `gorm:"type:varchar(16);not null;index" json:"status"`
	ConversationID  *string    `gorm:"type:varchar(64)" json:"conversation_id"`
	ConversationURL *string    `gorm:"type:varchar(512)" json:"conversation_url"`
	Rating          *int       `json:"rating"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusEscalated
}
