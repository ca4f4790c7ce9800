package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/DphenomenalALU/class-mate/internal/common"
)

var ErrValidation = errors.New("validation failed")

// PersonaSyncer pushes prompt/context changes out to the video persona.
type PersonaSyncer interface {
	SyncPersona(ctx context.Context, personaID, systemPrompt, contextText string) error
}

type Service struct {
	repo   *Repo
	syncer PersonaSyncer
}

func NewService(repo *Repo, syncer PersonaSyncer) *Service {
	return &Service{repo: repo, syncer: syncer}
}

// Create registers a new course assistant and best-effort syncs its prompt to
// the Tavus persona. A failed sync is logged, never surfaced: the row is the
// source of truth and the sync can be repeated.
func (s *Service) Create(ctx context.Context, courseCode, courseName, personaID, replicaID string, createdBy *string) (*Assistant, error) {
	if courseCode == "" || courseName == "" || personaID == "" || replicaID == "" {
		return nil, fmt.Errorf("%w: courseCode, courseName, personaId, and replicaId are required", ErrValidation)
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	a := &Assistant{
		ID:             id,
		CourseCode:     courseCode,
		Name:           courseName,
		TavusPersonaID: personaID,
		TavusReplicaID: replicaID,
		SystemPrompt:   buildSystemPrompt(courseCode, courseName),
		Context:        assistantContext,
		IsActive:       true,
		CreatedBy:      createdBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if s.syncer != nil {
		go func() {
			if err := s.syncer.SyncPersona(context.Background(), personaID, a.SystemPrompt, a.Context); err != nil {
				log.Printf("tavus persona sync failed assistant=%s persona=%s err=%v", a.ID, personaID, err)
			}
		}()
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Assistant, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Assistant, error) {
	return s.repo.ListActive(ctx)
}

const assistantContext = `This assistant is part of ClassMate, an AI-powered academic support tool used in distributed learning environments.
It should focus on helping students understand course concepts, clarify syllabus details, and navigate course logistics based on uploaded materials.`

func buildSystemPrompt(courseCode, courseName string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are ClassMate, an AI teaching assistant for the course %s (%s) at a higher education institution.

- Only answer questions using the course materials and notes provided by the facilitator.
- If a question is outside the materials OR involves grades, attendance, extensions, disputes, or other administrative decisions:
  - Clearly say you cannot resolve it yourself.
  - Ask the student to click the Escalate button below so their facilitator can review the case.
  - Do NOT invent grades, attendance records, policies, or outcomes.
- Keep responses concise, spoken-word friendly, and optimized for real-time video conversation (no markdown, no stage directions).
- Adapt explanations to the student's level and ask clarifying questions when needed.
- Do not provide medical, financial, or personal life advice.
`, courseCode, courseName))
}
