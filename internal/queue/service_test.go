package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewService(NewRepo(db), nil), db
}

func mustAdmit(t *testing.T, svc *Service, assistantID, studentClientID string) *Admission {
	t.Helper()
	adm, err := svc.RequestAdmission(context.Background(), assistantID, studentClientID)
	if err != nil {
		t.Fatalf("request admission %s/%s: %v", assistantID, studentClientID, err)
	}
	return adm
}

func TestRequestAdmission_FillsLineInOrder(t *testing.T) {
	svc, _ := newTestService(t)
	const asst = "asst-order"

	s1 := mustAdmit(t, svc, asst, "s1")
	if s1.Status != AdmissionActive || s1.Position != 1 {
		t.Fatalf("s1: got %s/%d, want active/1", s1.Status, s1.Position)
	}

	s2 := mustAdmit(t, svc, asst, "s2")
	if s2.Status != AdmissionQueued || s2.Position != 2 {
		t.Fatalf("s2: got %s/%d, want queued/2", s2.Status, s2.Position)
	}

	s3 := mustAdmit(t, svc, asst, "s3")
	if s3.Status != AdmissionQueued || s3.Position != 3 {
		t.Fatalf("s3: got %s/%d, want queued/3", s3.Status, s3.Position)
	}
}

func TestRequestAdmission_ActiveRepollIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	const asst = "asst-repoll"

	first := mustAdmit(t, svc, asst, "s1")
	again := mustAdmit(t, svc, asst, "s1")

	if again.QueueID != first.QueueID || again.Position != first.Position || again.Status != AdmissionActive {
		t.Fatalf("re-poll changed the entry: first=%+v again=%+v", first, again)
	}

	var cnt int64
	if err := db.Model(&Entry{}).Where("assistant_id = ?", asst).Count(&cnt).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 row, got %d", cnt)
	}
}

func TestRequestAdmission_OneNonTerminalEntryPerStudent(t *testing.T) {
	svc, db := newTestService(t)
	const asst = "asst-one-slot"

	mustAdmit(t, svc, asst, "s1")
	mustAdmit(t, svc, asst, "s2")
	mustAdmit(t, svc, asst, "s2")
	mustAdmit(t, svc, asst, "s2")

	var cnt int64
	err := db.Model(&Entry{}).
		Where("assistant_id = ? AND student_client_id = ? AND status IN ?",
			asst, "s2", []string{StatusWaiting, StatusActive}).
		Count(&cnt).Error
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 non-terminal entry for s2, got %d", cnt)
	}
}

func TestRequestAdmission_RejoinWhileWaitingMovesToBack(t *testing.T) {
	svc, _ := newTestService(t)
	const asst = "asst-rejoin"

	mustAdmit(t, svc, asst, "s1")
	s2 := mustAdmit(t, svc, asst, "s2")
	mustAdmit(t, svc, asst, "s3")

	// s2 re-sends its request while still waiting: it keeps its entry but
	// loses its slot and re-appends behind s3.
	rejoined := mustAdmit(t, svc, asst, "s2")
	if rejoined.QueueID != s2.QueueID {
		t.Fatalf("rejoin created a new entry: %s != %s", rejoined.QueueID, s2.QueueID)
	}
	if rejoined.Status != AdmissionQueued || rejoined.Position != 4 {
		t.Fatalf("rejoin: got %s/%d, want queued/4", rejoined.Status, rejoined.Position)
	}
}

func TestRequestAdmission_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.RequestAdmission(context.Background(), "", "s1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty assistant: got %v, want ErrValidation", err)
	}
	if _, err := svc.RequestAdmission(context.Background(), "a1", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty student: got %v, want ErrValidation", err)
	}
}

func TestCompleteSession_PromotesInFIFOOrder(t *testing.T) {
	svc, db := newTestService(t)
	const asst = "asst-fifo"

	s1 := mustAdmit(t, svc, asst, "s1")
	s2 := mustAdmit(t, svc, asst, "s2")
	mustAdmit(t, svc, asst, "s3")

	promoted, err := svc.CompleteSession(context.Background(), s1.QueueID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if promoted == nil || promoted.ID != s2.QueueID {
		t.Fatalf("expected s2 promoted, got %+v", promoted)
	}
	// promotion keeps the waiting position
	if promoted.Position != 2 {
		t.Fatalf("promotion renumbered: got position %d, want 2", promoted.Position)
	}

	var e Entry
	if err := db.First(&e, "id = ?", s2.QueueID).Error; err != nil {
		t.Fatalf("reload s2: %v", err)
	}
	if e.Status != StatusActive {
		t.Fatalf("s2 status: got %s, want active", e.Status)
	}

	status, position, err := svc.Status(context.Background(), s2.QueueID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusActive || position != 2 {
		t.Fatalf("status poll: got %s/%d, want active/2", status, position)
	}
}

func TestCompleteSession_EmptyLine(t *testing.T) {
	svc, _ := newTestService(t)
	const asst = "asst-empty"

	s1 := mustAdmit(t, svc, asst, "s1")
	promoted, err := svc.CompleteSession(context.Background(), s1.QueueID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if promoted != nil {
		t.Fatalf("expected no promotion, got %+v", promoted)
	}

	// completing an already-completed entry is accepted
	promoted, err = svc.CompleteSession(context.Background(), s1.QueueID)
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if promoted != nil {
		t.Fatalf("expected no promotion on re-complete, got %+v", promoted)
	}
}

func TestCompleteSession_UnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CompleteSession(context.Background(), "01UNKNOWN0000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCancel_WaitingEntrySkippedAtPromotion(t *testing.T) {
	svc, db := newTestService(t)
	const asst = "asst-cancel-wait"

	s1 := mustAdmit(t, svc, asst, "s1")
	s2 := mustAdmit(t, svc, asst, "s2")
	s3 := mustAdmit(t, svc, asst, "s3")

	promoted, err := svc.Cancel(context.Background(), s2.QueueID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if promoted != nil {
		t.Fatalf("cancelling a waiting entry must not promote, got %+v", promoted)
	}

	var e Entry
	if err := db.First(&e, "id = ?", s2.QueueID).Error; err != nil {
		t.Fatalf("reload s2: %v", err)
	}
	if e.Status != StatusCancelled {
		t.Fatalf("s2 status: got %s, want cancelled", e.Status)
	}

	// s3 is next now, not s2
	promoted, err = svc.CompleteSession(context.Background(), s1.QueueID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if promoted == nil || promoted.ID != s3.QueueID {
		t.Fatalf("expected s3 promoted past the cancelled s2, got %+v", promoted)
	}
}

func TestCancel_ActiveEntryFreesSlot(t *testing.T) {
	svc, _ := newTestService(t)
	const asst = "asst-cancel-active"

	s1 := mustAdmit(t, svc, asst, "s1")
	s2 := mustAdmit(t, svc, asst, "s2")

	promoted, err := svc.Cancel(context.Background(), s1.QueueID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if promoted == nil || promoted.ID != s2.QueueID {
		t.Fatalf("expected s2 promoted, got %+v", promoted)
	}
}

func TestCancel_TerminalIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	const asst = "asst-cancel-idem"

	s1 := mustAdmit(t, svc, asst, "s1")
	if _, err := svc.Cancel(context.Background(), s1.QueueID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), s1.QueueID); err != nil {
		t.Fatalf("re-cancel: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), "01UNKNOWN0000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id: want ErrNotFound")
	}
}

func TestConcurrentAdmission_ExactlyOneActive(t *testing.T) {
	svc, db := newTestService(t)
	const asst = "asst-race"
	const students = 8

	errs := make(chan error, students)
	var wg sync.WaitGroup
	wg.Add(students)
	for i := 0; i < students; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := svc.RequestAdmission(context.Background(), asst, fmt.Sprintf("racer-%d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("request admission: %v", err)
		}
	}

	var active int64
	if err := db.Model(&Entry{}).
		Where("assistant_id = ? AND status = ?", asst, StatusActive).
		Count(&active).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected exactly 1 active entry, got %d", active)
	}

	// positions of non-terminal entries are all distinct
	var entries []Entry
	if err := db.Where("assistant_id = ?", asst).Order("position ASC").Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != students {
		t.Fatalf("expected %d entries, got %d", students, len(entries))
	}
	seen := map[int]bool{}
	for _, e := range entries {
		if seen[e.Position] {
			t.Fatalf("duplicate position %d", e.Position)
		}
		seen[e.Position] = true
	}
}

func TestPositionsAreMonotonic(t *testing.T) {
	svc, _ := newTestService(t)
	const asst = "asst-monotonic"

	s1 := mustAdmit(t, svc, asst, "s1")
	s2 := mustAdmit(t, svc, asst, "s2")
	s3 := mustAdmit(t, svc, asst, "s3")
	if !(s1.Position < s2.Position && s2.Position < s3.Position) {
		t.Fatalf("positions not increasing: %d %d %d", s1.Position, s2.Position, s3.Position)
	}

	// promotion does not compact positions: a new arrival still goes behind
	// the highest assigned slot
	if _, err := svc.CompleteSession(context.Background(), s1.QueueID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	s4 := mustAdmit(t, svc, asst, "s4")
	if s4.Position != 4 {
		t.Fatalf("s4: got position %d, want 4", s4.Position)
	}
}

type fakeCache struct {
	entries map[string]string
	hits    int
}

func (f *fakeCache) GetEntryStatus(_ context.Context, id string) (string, int, bool) {
	if v, ok := f.entries[id]; ok {
		f.hits++
		return v, 7, true
	}
	return "", 0, false
}

func (f *fakeCache) SetEntryStatus(_ context.Context, id, status string, _ int) {
	f.entries[id] = status
}

func TestStatus_ServedFromCache(t *testing.T) {
	db := openTestDB(t)
	cache := &fakeCache{entries: map[string]string{}}
	svc := NewService(NewRepo(db), cache)

	// cache already knows the entry; the DB never will
	cache.entries["cached-entry"] = StatusWaiting

	status, position, err := svc.Status(context.Background(), "cached-entry")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != StatusWaiting || position != 7 {
		t.Fatalf("got %s/%d, want waiting/7", status, position)
	}
	if cache.hits != 1 {
		t.Fatalf("expected a cache hit, got %d", cache.hits)
	}
}

func TestStatus_UnknownEntry(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.Status(context.Background(), "01UNKNOWN0000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
