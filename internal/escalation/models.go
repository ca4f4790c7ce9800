package escalation

import "time"

const (
	SourceStudent = "student"
	SourceLLM     = "llm"

	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Escalation is a flag raised during a session (by the student or the AI)
// indicating the question needs human facilitator follow-up. Immutable after
// creation except for the open -> resolved transition.
type Escalation struct {
	ID          string     `gorm:"primaryKey;size:26" json:"id"`
	SessionID   string     `gorm:"type:varchar(26);not null;index" json:"session_id"`
	AssistantID string     `gorm:"type:varchar(26);not null;index" json:"assistant_id"`
	StudentID   string     `gorm:"type:varchar(26);not null;index" json:"student_id"`
	Source      string     `gorm:"type:varchar(16);not null" json:"source"`
	Reason      *string    `gorm:"type:text" json:"reason"`
	Status      string     `gorm:"type:varchar(16);not null;index" json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	ResolvedBy  *string    `gorm:"type:varchar(26)" json:"resolved_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Escalation) TableName() string { return "escalations" }
