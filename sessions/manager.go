package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"helpmypet-backend/assessment"
	"helpmypet-backend/intake"
	"helpmypet-backend/store"
)

var ErrForbidden = errors.New("session belongs to another user")

// ValidationError names the first offending input field.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string { return "validation failed: " + e.Field + " is required" }

// ValidateIntake checks the fields a new session cannot do without.
func ValidateIntake(in intake.ClinicalIntake) error {
	if f := in.MissingRequired(); f != "" {
		return ValidationError{Field: f}
	}
	return nil
}

// Manager owns clinical sessions and educational history for all users.
type Manager struct {
	store store.Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(st store.Store) *Manager {
	return &Manager{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
		locks: make(map[string]*sessionLock),
	}
}

// Lock serializes work on one session id. Call the returned func to release.
func (m *Manager) Lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// Start creates a session together with its initial interaction.
func (m *Manager) Start(ctx context.Context, userID string, in intake.ClinicalIntake, question string, resp assessment.Response, degraded bool) (store.Session, error) {
	if err := ValidateIntake(in); err != nil {
		return store.Session{}, err
	}
	if strings.TrimSpace(question) == "" {
		question = in.PresentingProblems.MainComplaint
	}
	now := m.now()
	s := store.Session{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		Intake:      in,
		Interactions: []store.Interaction{{
			Timestamp: now,
			Question:  question,
			Response:  resp,
			Type:      store.InteractionInitial,
			Degraded:  degraded,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return store.Session{}, fmt.Errorf("create session: %w", err)
	}
	log.Printf("[sessions][start] user=%s session=%s degraded=%v", userID, s.ID, degraded)
	return s, nil
}

// Get returns a session owned by userID.
func (m *Manager) Get(ctx context.Context, userID, sessionID string) (store.Session, error) {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	if s.OwnerUserID != userID {
		log.Printf("[sessions][deny] user=%s session=%s reason=owner_mismatch", userID, sessionID)
		return store.Session{}, ErrForbidden
	}
	return s, nil
}

// AppendFollowUp records a follow-up turn on an existing session.
func (m *Manager) AppendFollowUp(ctx context.Context, userID, sessionID, question string, resp assessment.Response, degraded bool) (store.Session, error) {
	if strings.TrimSpace(question) == "" {
		return store.Session{}, ValidationError{Field: "question"}
	}
	if _, err := m.Get(ctx, userID, sessionID); err != nil {
		return store.Session{}, err
	}
	s, err := m.store.AppendInteraction(ctx, sessionID, store.Interaction{
		Timestamp: m.now(),
		Question:  question,
		Response:  resp,
		Type:      store.InteractionFollowUp,
		Degraded:  degraded,
	})
	if err != nil {
		return store.Session{}, fmt.Errorf("append interaction: %w", err)
	}
	log.Printf("[sessions][follow_up] user=%s session=%s interactions=%d", userID, sessionID, len(s.Interactions))
	return s, nil
}

// RecordEducational stores one educational question and answer.
func (m *Manager) RecordEducational(ctx context.Context, userID, agentType, prompt, response string) (store.Entry, error) {
	e := store.Entry{
		ID:          uuid.NewString(),
		OwnerUserID: userID,
		Prompt:      prompt,
		Response:    response,
		AgentType:   agentType,
		Timestamp:   m.now(),
	}
	if err := m.store.CreateEntry(ctx, e); err != nil {
		return store.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	return e, nil
}

const KindClinical = "clinical"

// HistoryItem is one row of the merged history feed.
type HistoryItem struct {
	// Kind is "clinical" for sessions, otherwise the agent type of the entry.
	Kind      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Session   *store.Session `json:"session,omitempty"`
	Entry     *store.Entry   `json:"entry,omitempty"`
}

// ListHistory merges sessions and educational entries, newest first. Sessions sort by
// UpdatedAt, entries by Timestamp; ties keep sessions before entries.
func (m *Manager) ListHistory(ctx context.Context, userID string) ([]HistoryItem, error) {
	sessions, err := m.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	entries, err := m.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	items := make([]HistoryItem, 0, len(sessions)+len(entries))
	for i := range sessions {
		items = append(items, HistoryItem{Kind: KindClinical, Timestamp: sessions[i].UpdatedAt, Session: &sessions[i]})
	}
	for i := range entries {
		items = append(items, HistoryItem{Kind: entries[i].AgentType, Timestamp: entries[i].Timestamp, Entry: &entries[i]})
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].Timestamp.After(items[b].Timestamp)
	})
	return items, nil
}
