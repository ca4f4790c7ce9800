package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DphenomenalALU/class-mate/internal/assistant"
	"github.com/DphenomenalALU/class-mate/internal/common"
	"github.com/DphenomenalALU/class-mate/internal/tavus"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrAssistantNotFound = errors.New("assistant not found")
)

// ConversationStarter opens the live video conversation for a session.
type ConversationStarter interface {
	CreateConversation(ctx context.Context, replicaID, personaID string) (*tavus.Conversation, error)
}

// Defaults are the fallback replica/persona used when an assistant does not
// carry its own. Resolved once at startup from configuration.
type Defaults struct {
	ReplicaID string
	PersonaID string
}

type Service struct {
	repo       *Repo
	assistants *assistant.Repo
	starter    ConversationStarter
	defaults   Defaults
}

func NewService(repo *Repo, assistants *assistant.Repo, starter ConversationStarter, defaults Defaults) *Service {
	return &Service{repo: repo, assistants: assistants, starter: starter, defaults: defaults}
}

// Start creates an active session and attaches a live conversation to it.
func (s *Service) Start(ctx context.Context, assistantID, studentID string) (*Session, error) {
	if assistantID == "" || studentID == "" {
		return nil, fmt.Errorf("%w: assistantId and studentId are required", ErrValidation)
	}

	asst, err := s.assistants.GetByID(ctx, assistantID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			return nil, ErrAssistantNotFound
		}
		return nil, err
	}

	replicaID := s.defaults.ReplicaID
	if asst.TavusReplicaID != "" {
		replicaID = asst.TavusReplicaID
	}
	personaID := s.defaults.PersonaID
	if asst.TavusPersonaID != "" {
		personaID = asst.TavusPersonaID
	}

	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		SessionID:   sid,
		AssistantID: assistantID,
		StudentID:   studentID,
		Status:      StatusActive,
		StartedAt:   time.Now(),
	}

	if s.starter != nil {
		conv, err := s.starter.CreateConversation(ctx, replicaID, personaID)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		sess.ConversationID = &conv.ConversationID
		sess.ConversationURL = &conv.ConversationURL
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// End completes the session. Ending an already-terminal session is accepted
// and leaves it unchanged.
func (s *Service) End(ctx context.Context, sessionID string, rating *int) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	sess, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Terminal() {
		return sess, nil
	}

	if err := s.repo.End(ctx, sessionID, rating); err != nil {
		return nil, err
	}
	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}
	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *Service) ListByStudent(ctx context.Context, studentID string, limit int) ([]Session, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: studentId is required", ErrValidation)
	}
	return s.repo.ListByStudent(ctx, studentID, limit)
}
