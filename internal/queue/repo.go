package queue

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Transaction runs fn against a tx-bound repo. Reads inside take row locks
// on MySQL, so the read-decide-write admission sequence is a real critical
// section at the database, not just in this process.
func (r *Repo) Transaction(ctx context.Context, fn func(tx *Repo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}

// lockForUpdate adds FOR UPDATE where the dialect supports it. SQLite (tests)
// serializes writers on its own and rejects the clause.
func (r *Repo) lockForUpdate(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "mysql" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// ListNonTerminal returns the waiting/active entries for an assistant in
// ascending position order.
func (r *Repo) ListNonTerminal(ctx context.Context, assistantID string) ([]Entry, error) {
	q := r.db.WithContext(ctx).
		Where("assistant_id = ? AND status IN ?", assistantID, []string{StatusWaiting, StatusActive}).
		Order("position ASC")

	var entries []Entry
	if err := r.lockForUpdate(q).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	return entries, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read queue entry: %w", err)
	}
	return &e, nil
}

func (r *Repo) Create(ctx context.Context, e *Entry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

// UpdateStatusPosition mutates an entry in place (re-request, promotion to a
// fresh slot). Position is never renumbered outside these writes.
func (r *Repo) UpdateStatusPosition(ctx context.Context, id, status string, position int) error {
	err := r.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "position": position}).Error
	if err != nil {
		return fmt.Errorf("update queue entry: %w", err)
	}
	return nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id, status string) error {
	err := r.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("update queue entry: %w", err)
	}
	return nil
}

// FirstWaiting returns the lowest-position waiting entry, or nil when the
// line is empty. Cancelled entries never match.
func (r *Repo) FirstWaiting(ctx context.Context, assistantID string) (*Entry, error) {
	q := r.db.WithContext(ctx).
		Where("assistant_id = ? AND status = ?", assistantID, StatusWaiting).
		Order("position ASC")

	var e Entry
	if err := r.lockForUpdate(q).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read waiting line: %w", err)
	}
	return &e, nil
}
