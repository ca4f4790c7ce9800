package escalation

import (
	"context"
	"errors"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/DphenomenalALU/class-mate/internal/assistant"
	"github.com/DphenomenalALU/class-mate/internal/models"
	"github.com/DphenomenalALU/class-mate/internal/session"
)

type fakeNotifier struct {
	published []string
	err       error
}

func (f *fakeNotifier) PublishEscalation(_ context.Context, escalationID string) error {
	f.published = append(f.published, escalationID)
	return f.err
}

type sentMail struct {
	to      string
	replyTo string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendText(to, replyTo, subject, body string) error {
	f.sent = append(f.sent, sentMail{to: to, replyTo: replyTo, subject: subject, body: body})
	return nil
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	notifier *fakeNotifier
	mailer   *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &assistant.Assistant{}, &session.Session{}, &Escalation{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}
	svc := NewService(
		NewRepo(db),
		session.NewRepo(db),
		assistant.NewRepo(db),
		models.Directory{DB: db},
		notifier,
		mailer,
	)
	return &fixture{svc: svc, db: db, notifier: notifier, mailer: mailer}
}

func (f *fixture) seedUser(t *testing.T, userID, email string) {
	t.Helper()
	u := models.User{
		UserID:       userID,
		Email:        email,
		Username:     userID,
		PasswordHash: "x",
		Role:         models.RoleFacilitator,
	}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", userID, err)
	}
}

func (f *fixture) seedAssistant(t *testing.T, id string, createdBy *string) {
	t.Helper()
	a := assistant.Assistant{
		ID:             id,
		CourseCode:     "CS101",
		Name:           "Intro to CS",
		TavusPersonaID: "p1",
		TavusReplicaID: "r1",
		IsActive:       true,
		CreatedBy:      createdBy,
	}
	if err := f.db.Create(&a).Error; err != nil {
		t.Fatalf("seed assistant %s: %v", id, err)
	}
}

func (f *fixture) seedSession(t *testing.T, sessionID, assistantID, studentID string) {
	t.Helper()
	s := session.Session{
		SessionID:   sessionID,
		AssistantID: assistantID,
		StudentID:   studentID,
		Status:      session.StatusActive,
	}
	if err := f.db.Create(&s).Error; err != nil {
		t.Fatalf("seed session %s: %v", sessionID, err)
	}
}

func TestCreate_RecordsAndEscalatesSession(t *testing.T) {
	f := newFixture(t)
	fac := "fac-1"
	f.seedUser(t, fac, "fac@example.edu")
	f.seedAssistant(t, "asst-1", &fac)
	f.seedSession(t, "sess-1", "asst-1", "stud-1")

	esc, err := f.svc.Create(context.Background(), "sess-1", "asst-1", "grading question", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if esc.Status != StatusOpen || esc.Source != SourceStudent {
		t.Fatalf("escalation: got %s/%s, want open/student", esc.Status, esc.Source)
	}
	if esc.StudentID != "stud-1" {
		t.Fatalf("student id: got %s, want stud-1", esc.StudentID)
	}

	var sess session.Session
	if err := f.db.Where("session_id = ?", "sess-1").First(&sess).Error; err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if sess.Status != session.StatusEscalated {
		t.Fatalf("session status: got %s, want escalated", sess.Status)
	}
	if sess.EndedAt == nil {
		t.Fatalf("session ended_at not set")
	}

	if len(f.notifier.published) != 1 || f.notifier.published[0] != esc.ID {
		t.Fatalf("expected 1 published notification for %s, got %v", esc.ID, f.notifier.published)
	}
}

func TestCreate_NotFound(t *testing.T) {
	f := newFixture(t)
	fac := "fac-2"
	f.seedUser(t, fac, "fac2@example.edu")
	f.seedAssistant(t, "asst-2", &fac)
	f.seedSession(t, "sess-2", "asst-2", "stud-2")

	if _, err := f.svc.Create(context.Background(), "missing", "asst-2", "", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
	if _, err := f.svc.Create(context.Background(), "sess-2", "missing", "", ""); !errors.Is(err, ErrAssistantNotFound) {
		t.Fatalf("got %v, want ErrAssistantNotFound", err)
	}
}

func TestCreate_InvalidSource(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), "s", "a", "", "robot"); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

func TestCreate_NotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	fac := "fac-3"
	f.seedUser(t, fac, "fac3@example.edu")
	f.seedAssistant(t, "asst-3", &fac)
	f.seedSession(t, "sess-3", "asst-3", "stud-3")

	esc, err := f.svc.Create(context.Background(), "sess-3", "asst-3", "", SourceLLM)
	if err != nil {
		t.Fatalf("notification failure must not fail the escalation: %v", err)
	}
	if esc.Source != SourceLLM {
		t.Fatalf("source: got %s, want llm", esc.Source)
	}
}

func TestDispatch_SendsFacilitatorEmail(t *testing.T) {
	f := newFixture(t)
	fac := "fac-4"
	f.seedUser(t, fac, "fac4@example.edu")
	f.seedUser(t, "stud-4", "stud4@example.edu")
	f.seedAssistant(t, "asst-4", &fac)
	f.seedSession(t, "sess-4", "asst-4", "stud-4")

	esc, err := f.svc.Create(context.Background(), "sess-4", "asst-4", "outside the materials", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.svc.Dispatch(context.Background(), esc.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(f.mailer.sent))
	}
	m := f.mailer.sent[0]
	if m.to != "fac4@example.edu" {
		t.Fatalf("to: got %s", m.to)
	}
	if m.replyTo != "stud4@example.edu" {
		t.Fatalf("replyTo: got %s", m.replyTo)
	}
	if !strings.Contains(m.subject, "[CS101]") {
		t.Fatalf("subject missing course code: %q", m.subject)
	}
	if !strings.Contains(m.body, "outside the materials") {
		t.Fatalf("body missing reason: %q", m.body)
	}
}

func TestDispatch_NoFacilitatorEmailSkips(t *testing.T) {
	f := newFixture(t)
	f.seedAssistant(t, "asst-5", nil) // no facilitator at all
	f.seedSession(t, "sess-5", "asst-5", "stud-5")

	esc, err := f.svc.Create(context.Background(), "sess-5", "asst-5", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Dispatch(context.Background(), esc.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(f.mailer.sent))
	}

	// facilitator id set but no such user either
	ghost := "ghost-fac"
	f.seedAssistant(t, "asst-6", &ghost)
	f.seedSession(t, "sess-6", "asst-6", "stud-6")
	esc, err = f.svc.Create(context.Background(), "sess-6", "asst-6", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Dispatch(context.Background(), esc.ID); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("expected no email for unresolvable facilitator, got %d", len(f.mailer.sent))
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	fac := "fac-7"
	f.seedUser(t, fac, "fac7@example.edu")
	f.seedAssistant(t, "asst-7", &fac)
	f.seedSession(t, "sess-7", "asst-7", "stud-7")

	esc, err := f.svc.Create(context.Background(), "sess-7", "asst-7", "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := f.svc.Resolve(context.Background(), esc.ID, fac)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("resolved: got %+v", resolved)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != fac {
		t.Fatalf("resolved_by: got %v", resolved.ResolvedBy)
	}

	// resolving again is a no-op
	again, err := f.svc.Resolve(context.Background(), esc.ID, "someone-else")
	if err != nil {
		t.Fatalf("re-resolve: %v", err)
	}
	if *again.ResolvedBy != fac {
		t.Fatalf("re-resolve overwrote resolver: %v", *again.ResolvedBy)
	}

	if _, err := f.svc.Resolve(context.Background(), "missing", fac); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
