package queue

import (
	"context"
	"fmt"

	"github.com/DphenomenalALU/class-mate/internal/common"
)

const (
	AdmissionActive = "active"
	AdmissionQueued = "queued"
)

// Admission is the outcome of one admission request.
type Admission struct {
	QueueID  string `json:"queueId"`
	Status   string `json:"status"` // "active" | "queued"
	Position int    `json:"position"`
}

// Promotion identifies the entry that took over the freed slot.
type Promotion struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// StatusCache is an optional read-through cache for entry status polls.
// Implementations must be best-effort; a miss or failure falls back to the DB.
type StatusCache interface {
	GetEntryStatus(ctx context.Context, id string) (status string, position int, ok bool)
	SetEntryStatus(ctx context.Context, id, status string, position int)
}

type Service struct {
	repo  *Repo
	cache StatusCache
	locks *assistantLocks
}

func NewService(repo *Repo, cache StatusCache) *Service {
	return &Service{repo: repo, cache: cache, locks: newAssistantLocks()}
}

// RequestAdmission decides whether the caller takes the assistant's slot now
// or joins the waiting line. Re-polling while active is idempotent; a
// re-request while waiting moves the student to the back of the line.
func (s *Service) RequestAdmission(ctx context.Context, assistantID, studentClientID string) (*Admission, error) {
	if assistantID == "" || studentClientID == "" {
		return nil, fmt.Errorf("%w: assistantId and studentClientId are required", ErrValidation)
	}

	unlock := s.locks.lock(assistantID)
	defer unlock()

	var out *Admission
	err := s.repo.Transaction(ctx, func(tx *Repo) error {
		entries, err := tx.ListNonTerminal(ctx, assistantID)
		if err != nil {
			return err
		}

		var activeEntry *Entry
		var lastWaiting *Entry
		var existing *Entry
		for i := range entries {
			e := &entries[i]
			switch e.Status {
			case StatusActive:
				activeEntry = e
			case StatusWaiting:
				lastWaiting = e
			}
			if e.StudentClientID == studentClientID {
				existing = e
			}
		}

		// Re-poll while already holding the slot.
		if existing != nil && existing.Status == StatusActive {
			out = &Admission{QueueID: existing.ID, Status: AdmissionActive, Position: existing.Position}
			return nil
		}

		// Slot is free: the caller takes it at position 1.
		if activeEntry == nil {
			const position = 1
			if existing != nil {
				if err := tx.UpdateStatusPosition(ctx, existing.ID, StatusActive, position); err != nil {
					return err
				}
				out = &Admission{QueueID: existing.ID, Status: AdmissionActive, Position: position}
				return nil
			}
			id, err := common.NewULID()
			if err != nil {
				return err
			}
			e := &Entry{
				ID:              id,
				AssistantID:     assistantID,
				StudentClientID: studentClientID,
				Status:          StatusActive,
				Position:        position,
			}
			if err := tx.Create(ctx, e); err != nil {
				return err
			}
			out = &Admission{QueueID: e.ID, Status: AdmissionActive, Position: position}
			return nil
		}

		// Slot is busy: the caller goes to the back of the line. An existing
		// waiting entry is re-appended rather than keeping its old slot.
		next := activeEntry.Position
		if lastWaiting != nil {
			next = lastWaiting.Position
		}
		next++

		if existing != nil {
			if err := tx.UpdateStatusPosition(ctx, existing.ID, StatusWaiting, next); err != nil {
				return err
			}
			out = &Admission{QueueID: existing.ID, Status: AdmissionQueued, Position: next}
			return nil
		}

		id, err := common.NewULID()
		if err != nil {
			return err
		}
		e := &Entry{
			ID:              id,
			AssistantID:     assistantID,
			StudentClientID: studentClientID,
			Status:          StatusWaiting,
			Position:        next,
		}
		if err := tx.Create(ctx, e); err != nil {
			return err
		}
		out = &Admission{QueueID: e.ID, Status: AdmissionQueued, Position: next}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheAdmission(ctx, out)
	return out, nil
}

// CompleteSession marks the entry completed and hands the slot to the
// lowest-position waiting entry, if any. Completion is permissive: the entry
// does not need to be active, and completing twice is harmless.
func (s *Service) CompleteSession(ctx context.Context, queueID string) (*Promotion, error) {
	if queueID == "" {
		return nil, fmt.Errorf("%w: queueId is required", ErrValidation)
	}

	// First read learns the assistant so the right line can be locked.
	current, err := s.repo.GetByID(ctx, queueID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(current.AssistantID)
	defer unlock()

	var promoted *Promotion
	err = s.repo.Transaction(ctx, func(tx *Repo) error {
		if err := tx.UpdateStatus(ctx, queueID, StatusCompleted); err != nil {
			return err
		}

		next, err := tx.FirstWaiting(ctx, current.AssistantID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		// Promotion keeps the waiting position; positions are never renumbered.
		if err := tx.UpdateStatus(ctx, next.ID, StatusActive); err != nil {
			return err
		}
		promoted = &Promotion{ID: next.ID, Position: next.Position}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetEntryStatus(ctx, queueID, StatusCompleted, current.Position)
		if promoted != nil {
			s.cache.SetEntryStatus(ctx, promoted.ID, StatusActive, promoted.Position)
		}
	}
	return promoted, nil
}

// Cancel is the explicit leave-queue transition. Cancelling a waiting entry
// just drops it from the line; cancelling the active entry also frees the
// slot and promotes the next student. Terminal entries are left untouched.
func (s *Service) Cancel(ctx context.Context, queueID string) (*Promotion, error) {
	if queueID == "" {
		return nil, fmt.Errorf("%w: queueId is required", ErrValidation)
	}

	current, err := s.repo.GetByID(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if current.Terminal() {
		return nil, nil
	}

	unlock := s.locks.lock(current.AssistantID)
	defer unlock()

	var promoted *Promotion
	err = s.repo.Transaction(ctx, func(tx *Repo) error {
		fresh, err := tx.GetByID(ctx, queueID)
		if err != nil {
			return err
		}
		if fresh.Terminal() {
			return nil
		}
		wasActive := fresh.Status == StatusActive

		if err := tx.UpdateStatus(ctx, queueID, StatusCancelled); err != nil {
			return err
		}
		if !wasActive {
			return nil
		}

		next, err := tx.FirstWaiting(ctx, current.AssistantID)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if err := tx.UpdateStatus(ctx, next.ID, StatusActive); err != nil {
			return err
		}
		promoted = &Promotion{ID: next.ID, Position: next.Position}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetEntryStatus(ctx, queueID, StatusCancelled, current.Position)
		if promoted != nil {
			s.cache.SetEntryStatus(ctx, promoted.ID, StatusActive, promoted.Position)
		}
	}
	return promoted, nil
}

// Status reports the entry's current status and position, serving poll
// traffic from the cache when possible.
func (s *Service) Status(ctx context.Context, queueID string) (string, int, error) {
	if queueID == "" {
		return "", 0, fmt.Errorf("%w: id is required", ErrValidation)
	}

	if s.cache != nil {
		if status, position, ok := s.cache.GetEntryStatus(ctx, queueID); ok {
			return status, position, nil
		}
	}

	e, err := s.repo.GetByID(ctx, queueID)
	if err != nil {
		return "", 0, err
	}
	if s.cache != nil {
		s.cache.SetEntryStatus(ctx, e.ID, e.Status, e.Position)
	}
	return e.Status, e.Position, nil
}

func (s *Service) cacheAdmission(ctx context.Context, a *Admission) {
	if s.cache == nil {
		return
	}
	status := StatusActive
	if a.Status == AdmissionQueued {
		status = StatusWaiting
	}
	s.cache.SetEntryStatus(ctx, a.QueueID, status, a.Position)
}
