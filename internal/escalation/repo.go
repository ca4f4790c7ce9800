package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("escalation not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, e *Escalation) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Escalation, error) {
	var e Escalation
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read escalation: %w", err)
	}
	return &e, nil
}

// Resolve closes an open escalation. Resolving an already-resolved one is a
// no-op; an unknown id is a not-found.
func (r *Repo) Resolve(ctx context.Context, id, facilitatorID string) (*Escalation, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&Escalation{}).
		Where("id = ? AND status = ?", id, StatusOpen).
		Updates(map[string]any{
			"status":      StatusResolved,
			"resolved_at": now,
			"resolved_by": facilitatorID,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("resolve escalation: %w", res.Error)
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) List(ctx context.Context, status string, limit int) ([]Escalation, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []Escalation
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	return out, nil
}
