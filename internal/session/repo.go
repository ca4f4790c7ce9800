package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("session not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, s *Session) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repo) GetBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &s, nil
}

// End closes a session as completed, optionally recording the student rating.
func (r *Repo) End(ctx context.Context, sessionID string, rating *int) error {
	updates := map[string]any{
		"status":   StatusCompleted,
		"ended_at": time.Now(),
	}
	if rating != nil {
		updates["rating"] = *rating
	}
	err := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// MarkEscalated is the terminal transition taken when an escalation is
// recorded; it ends the session regardless of whether the live interaction
// actually stopped.
func (r *Repo) MarkEscalated(ctx context.Context, sessionID string) error {
	err := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":   StatusEscalated,
			"ended_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("mark session escalated: %w", err)
	}
	return nil
}

func (r *Repo) ListByStudent(ctx context.Context, studentID string, limit int) ([]Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []Session
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}
