package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helpmypet-backend/assessment"
	"helpmypet-backend/intake"
	"helpmypet-backend/store"
)

func newManager(t *testing.T) (*Manager, *time.Time) {
	t.Helper()
	st, err := store.OpenLevelMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	m := NewManager(st)
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func rex() intake.ClinicalIntake {
	var c intake.ClinicalIntake
	c.PatientInfo.Name = "Rex"
	c.PatientInfo.Species = "dog"
	c.PatientInfo.Age = "5"
	c.PresentingProblems.MainComplaint = "vomiting"
	return c
}

func TestStartCreatesOneInitialInteraction(t *testing.T) {
	m, _ := newManager(t)
	s, err := m.Start(context.Background(), "u1", rex(), "", assessment.Default(), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Interactions) != 1 || s.Interactions[0].Type != store.InteractionInitial {
		t.Fatalf("interactions=%+v", s.Interactions)
	}
	if s.Interactions[0].Question != "vomiting" {
		t.Fatalf("question should default to main complaint, got %q", s.Interactions[0].Question)
	}
}

func TestStartValidation(t *testing.T) {
	m, _ := newManager(t)
	cases := map[string]func(*intake.ClinicalIntake){
		"patientInfo.name":                 func(c *intake.ClinicalIntake) { c.PatientInfo.Name = "" },
		"patientInfo.species":              func(c *intake.ClinicalIntake) { c.PatientInfo.Species = " " },
		"patientInfo.age":                  func(c *intake.ClinicalIntake) { c.PatientInfo.Age = "" },
		"presentingProblems.mainComplaint": func(c *intake.ClinicalIntake) { c.PresentingProblems.MainComplaint = "" },
	}
	for field, mutate := range cases {
		in := rex()
		mutate(&in)
		_, err := m.Start(context.Background(), "u1", in, "q", assessment.Default(), false)
		var ve ValidationError
		if !errors.As(err, &ve) || ve.Field != field {
			t.Fatalf("%s: err=%v", field, err)
		}
	}
}

func TestAppendFollowUp(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()
	s, _ := m.Start(ctx, "u1", rex(), "vomiting", assessment.Default(), false)

	*clock = clock.Add(10 * time.Minute)
	got, err := m.AppendFollowUp(ctx, "u1", s.ID, "any blood?", assessment.Default(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Interactions) != 2 || got.Interactions[1].Type != store.InteractionFollowUp || !got.Interactions[1].Degraded {
		t.Fatalf("interactions=%+v", got.Interactions)
	}
	if !got.UpdatedAt.Equal(*clock) || got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updatedAt=%s createdAt=%s", got.UpdatedAt, got.CreatedAt)
	}
	if got.Intake != s.Intake {
		t.Fatal("intake changed on append")
	}

	if _, err := m.AppendFollowUp(ctx, "intruder", s.ID, "q", assessment.Default(), false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err=%v", err)
	}
	if _, err := m.AppendFollowUp(ctx, "u1", "nope", "q", assessment.Default(), false); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	var ve ValidationError
	if _, err := m.AppendFollowUp(ctx, "u1", s.ID, "  ", assessment.Default(), false); !errors.As(err, &ve) {
		t.Fatalf("err=%v", err)
	}
}

func TestListHistoryEducationalNewerFirst(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()
	s, _ := m.Start(ctx, "u1", rex(), "", assessment.Default(), false)
	*clock = clock.Add(time.Hour)
	e, _ := m.RecordEducational(ctx, "u1", "professor_ai", "what is parvo?", "a virus")

	items, err := m.ListHistory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}
	if items[0].Entry == nil || items[0].Entry.ID != e.ID || items[0].Kind != "professor_ai" {
		t.Fatalf("first=%+v", items[0])
	}
	if items[1].Session == nil || items[1].Session.ID != s.ID || items[1].Kind != KindClinical {
		t.Fatalf("second=%+v", items[1])
	}
}

func TestListHistoryStableTies(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	s1, _ := m.Start(ctx, "u1", rex(), "", assessment.Default(), false)
	s2, _ := m.Start(ctx, "u1", rex(), "", assessment.Default(), false)
	e1, _ := m.RecordEducational(ctx, "u1", "emergency_ai", "p", "r")

	items, err := m.ListHistory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// identical timestamps: sessions first in insertion order, then entries
	if items[0].Session.ID != s1.ID || items[1].Session.ID != s2.ID || items[2].Entry.ID != e1.ID {
		t.Fatalf("tie order broken: %+v", items)
	}
	other, _ := m.ListHistory(ctx, "u2")
	if len(other) != 0 {
		t.Fatalf("history leaked across users: %+v", other)
	}
}

func TestLockSerializesPerSession(t *testing.T) {
	m, _ := newManager(t)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("s1")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("concurrent holders=%d", maxSeen)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.locks) != 0 {
		t.Fatalf("lock entries leaked: %d", len(m.locks))
	}
}
