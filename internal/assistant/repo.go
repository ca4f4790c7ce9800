package assistant

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("assistant not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, a *Assistant) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("insert assistant: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Assistant, error) {
	var a Assistant
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read assistant: %w", err)
	}
	return &a, nil
}

func (r *Repo) ListActive(ctx context.Context) ([]Assistant, error) {
	var out []Assistant
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("course_code ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}
	return out, nil
}
