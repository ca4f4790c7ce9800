package assistant

import "time"

// Assistant is a course-specific AI tutoring persona. One independent
// admission queue exists per assistant.
type Assistant struct {
	ID             string    `gorm:"primaryKey;size:26" json:"id"`
	CourseCode     string    `gorm:"type:varchar(32);not null;index" json:"course_code"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	TavusPersonaID string    `gorm:"type:varchar(64)" json:"tavus_persona_id"`
	TavusReplicaID string    `gorm:"type:varchar(64)" json:"tavus_replica_id"`
	SystemPrompt   string    `gorm:"type:text" json:"system_prompt"`
	Context        string    `gorm:"type:text" json:"context"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedBy      *string   `gorm:"type:varchar(26);index" json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Assistant) TableName() string { return "assistants" }
