package escalation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/DphenomenalALU/class-mate/internal/assistant"
	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/session"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrAssistantNotFound = errors.New("assistant not found")
)

// Notifier hands the facilitator notification off to the delivery worker.
type Notifier interface {
	PublishEscalation(ctx context.Context, escalationID string) error
}

// Mailer sends the actual email on the worker side.
type Mailer interface {
	SendText(to, replyTo, subject, body string) error
}

// UserDirectory resolves contact details; unknown users resolve to "".
type UserDirectory interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

type Service struct {
	repo       *Repo
	sessions   *session.Repo
	assistants *assistant.Repo
	users      UserDirectory
	notifier   Notifier
	mailer     Mailer
}

func NewService(repo *Repo, sessions *session.Repo, assistants *assistant.Repo, users UserDirectory, notifier Notifier, mailer Mailer) *Service {
	return &Service{
		repo:       repo,
		sessions:   sessions,
		assistants: assistants,
		users:      users,
		notifier:   notifier,
		mailer:     mailer,
	}
}

// Create records the escalation and terminally flips the session to
// escalated. The queue slot stays taken; only an explicit queue completion
// frees it. Notification is best-effort and never fails the call.
func (s *Service) Create(ctx context.Context, sessionID, assistantID, reason, source string) (*Escalation, error) {
	if sessionID == "" || assistantID == "" {
		return nil, fmt.Errorf("%w: sessionId and assistantId are required", ErrValidation)
	}
	if source == "" {
		source = SourceStudent
	}
	if source != SourceStudent && source != SourceLLM {
		return nil, fmt.Errorf("%w: source must be %q or %q", ErrValidation, SourceStudent, SourceLLM)
	}

	sess, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if _, err := s.assistants.GetByID(ctx, assistantID); err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			return nil, ErrAssistantNotFound
		}
		return nil, err
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	esc := &Escalation{
		ID:          id,
		SessionID:   sess.SessionID,
		AssistantID: assistantID,
		StudentID:   sess.StudentID,
		Source:      source,
		Reason:      reasonPtr,
		Status:      StatusOpen,
	}
	if err := s.repo.Create(ctx, esc); err != nil {
		return nil, err
	}

	if err := s.sessions.MarkEscalated(ctx, sess.SessionID); err != nil {
		log.Printf("escalation %s: session %s status update failed: %v", esc.ID, sess.SessionID, err)
	}

	if s.notifier != nil {
		if err := s.notifier.PublishEscalation(ctx, esc.ID); err != nil {
			log.Printf("escalation %s: notification publish failed: %v", esc.ID, err)
		}
	}
	return esc, nil
}

// Dispatch resolves contact details and sends the facilitator email. Called
// by the notification worker. Missing facilitator contact is a silent skip,
// not an error: there is simply no one to notify.
func (s *Service) Dispatch(ctx context.Context, escalationID string) error {
	esc, err := s.repo.GetByID(ctx, escalationID)
	if err != nil {
		return err
	}

	asst, err := s.assistants.GetByID(ctx, esc.AssistantID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			log.Printf("escalation %s: assistant %s gone, skipping notification", esc.ID, esc.AssistantID)
			return nil
		}
		return err
	}

	if asst.CreatedBy == nil {
		log.Printf("escalation %s: assistant %s has no facilitator, skipping notification", esc.ID, asst.ID)
		return nil
	}
	facilitatorEmail, err := s.users.GetUserEmail(ctx, *asst.CreatedBy)
	if err != nil {
		return err
	}
	if facilitatorEmail == "" {
		log.Printf("escalation %s: no facilitator email resolvable, skipping notification", esc.ID)
		return nil
	}

	studentEmail, err := s.users.GetUserEmail(ctx, esc.StudentID)
	if err != nil {
		log.Printf("escalation %s: student email lookup failed: %v", esc.ID, err)
		studentEmail = ""
	}

	subject, body := composeEmail(asst, esc)
	return s.mailer.SendText(facilitatorEmail, studentEmail, subject, body)
}

func (s *Service) Resolve(ctx context.Context, id, facilitatorID string) (*Escalation, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	return s.repo.Resolve(ctx, id, facilitatorID)
}

func (s *Service) List(ctx context.Context, status string, limit int) ([]Escalation, error) {
	if status != "" && status != StatusOpen && status != StatusResolved {
		return nil, fmt.Errorf("%w: status must be %q or %q", ErrValidation, StatusOpen, StatusResolved)
	}
	return s.repo.List(ctx, status, limit)
}

func composeEmail(asst *assistant.Assistant, esc *Escalation) (subject, body string) {
	subject = "ClassMate Escalation"
	if asst.CourseCode != "" {
		subject += " [" + asst.CourseCode + "]"
	}

	var lines []string
	if asst.Name != "" && asst.CourseCode != "" {
		lines = append(lines, fmt.Sprintf("Assistant: %s (%s)", asst.Name, asst.CourseCode))
	}
	if esc.Reason != nil && *esc.Reason != "" {
		lines = append(lines, "Reason: "+*esc.Reason)
	} else {
		lines = append(lines, "Reason: (not provided)")
	}
	lines = append(lines, "", "This question needs facilitator review in the ClassMate dashboard.")
	return subject, strings.Join(lines, "\n")
}
