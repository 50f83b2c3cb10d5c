package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"helpmypet-backend/assessment"
)

func openMem(t *testing.T) *LevelStore {
	t.Helper()
	s, err := OpenLevelMemory()
	if err != nil {
		t.Fatalf("OpenLevelMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newSession(id, user string, at time.Time) Session {
	return Session{
		ID:          id,
		OwnerUserID: user,
		Interactions: []Interaction{{
			Timestamp: at, Question: "q0", Response: assessment.Default(), Type: InteractionInitial,
		}},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestLevelSessionLifecycle(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := s.CreateSession(ctx, newSession("s1", "u1", t0)); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSession(ctx, newSession("s1", "u1", t0)); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate id err=%v", err)
	}
	t1 := t0.Add(time.Hour)
	got, err := s.AppendInteraction(ctx, "s1", Interaction{Timestamp: t1, Question: "q1", Response: assessment.Default(), Type: InteractionFollowUp})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Interactions) != 2 || !got.UpdatedAt.Equal(t1) {
		t.Fatalf("after append: %+v", got)
	}
	reread, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(reread.FollowUps()) != 1 || reread.FollowUps()[0].Question != "q1" {
		t.Fatalf("reread=%+v", reread)
	}
	if first, ok := reread.Initial(); !ok || first.Type != InteractionInitial {
		t.Fatalf("initial=%+v ok=%v", first, ok)
	}
	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.AppendInteraction(ctx, "missing", Interaction{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestLevelListsKeepInsertionOrder(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	base := time.Now().UTC()
	// ids chosen so that lexical order differs from insertion order
	for i, id := range []string{"zz", "aa", "mm"} {
		if err := s.CreateSession(ctx, newSession(id, "u1", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.CreateSession(ctx, newSession("other", "u2", base))
	for i := 0; i < 12; i++ {
		e := Entry{ID: fmt.Sprintf("e%d", 11-i), OwnerUserID: "u1", AgentType: "professor_ai", Timestamp: base}
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := s.ListSessions(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 3 || sessions[0].ID != "zz" || sessions[1].ID != "aa" || sessions[2].ID != "mm" {
		t.Fatalf("sessions=%v", ids(sessions))
	}
	entries, err := s.ListEntries(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 12 || entries[0].ID != "e11" || entries[11].ID != "e0" {
		t.Fatalf("entries out of order")
	}
	empty, err := s.ListSessions(ctx, "nobody")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty=%v err=%v", empty, err)
	}
}

func ids(ss []Session) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.ID
	}
	return out
}

func TestLevelConcurrentAppends(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := s.CreateSession(ctx, newSession("s1", "u1", now)); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AppendInteraction(ctx, "s1", Interaction{Timestamp: now, Question: fmt.Sprint(i), Type: InteractionFollowUp})
		}(i)
	}
	wg.Wait()
	got, _ := s.GetSession(ctx, "s1")
	if len(got.Interactions) != 21 {
		t.Fatalf("lost appends: %d", len(got.Interactions))
	}
}

func TestLevelUsers(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	u := User{ID: "u1", Email: "Vet@Clinic.test", PasswordHash: "h1", Role: "doctor"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUser(ctx, User{ID: "u2", Email: "vet@clinic.test"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("err=%v", err)
	}
	got, err := s.GetUserByEmail(ctx, "VET@clinic.test")
	if err != nil || got.PasswordHash != "h1" || got.Role != "doctor" {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	if err := s.UpdatePassword(ctx, "vet@clinic.test", "h2"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetUserByEmail(ctx, "vet@clinic.test")
	if got.PasswordHash != "h2" {
		t.Fatalf("hash=%q", got.PasswordHash)
	}
	if _, err := s.GetUserByEmail(ctx, "none@x.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestLevelSubscribers(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	if err := s.CreateSubscriber(ctx, Subscriber{ID: "n1", Email: "Owner@Home.test"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSubscriber(ctx, Subscriber{ID: "n2", Email: " owner@home.test"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("err=%v", err)
	}
	// a subscriber is not an account
	if _, err := s.GetUserByEmail(ctx, "owner@home.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestRebind(t *testing.T) {
	q := `UPDATE sessions SET interactions = ?, updated_at = ? WHERE id = ?`
	if got := MySQL.Rebind(q); got != q {
		t.Fatalf("mysql rebind changed query: %s", got)
	}
	want := `UPDATE sessions SET interactions = $1, updated_at = $2 WHERE id = $3`
	if got := Postgres.Rebind(q); got != want {
		t.Fatalf("got %s", got)
	}
}

func TestParseDialect(t *testing.T) {
	if d, err := ParseDialect("Postgres"); err != nil || d != Postgres {
		t.Fatalf("d=%v err=%v", d, err)
	}
	if _, err := ParseDialect("sqlite"); err == nil {
		t.Fatal("sqlite accepted")
	}
}
