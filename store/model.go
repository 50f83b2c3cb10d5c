package store

import (
	"time"

	"helpmypet-backend/assessment"
	"helpmypet-backend/intake"
)

const (
	InteractionInitial  = "initial"
	InteractionFollowUp = "followUp"
)

// Session is a clinical consultation. The intake never changes; interactions are
// only ever appended.
type Session struct {
	ID           string                `json:"id"`
	OwnerUserID  string                `json:"userId"`
	Intake       intake.ClinicalIntake `json:"intake"`
	Interactions []Interaction         `json:"interactions"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

type Interaction struct {
	Timestamp time.Time           `json:"timestamp"`
	Question  string              `json:"question"`
	Response  assessment.Response `json:"response"`
	Type      string              `json:"type"`
	Degraded  bool                `json:"degraded,omitempty"`
}

// Initial returns the first interaction; ok is false for an empty session.
func (s Session) Initial() (Interaction, bool) {
	if len(s.Interactions) == 0 {
		return Interaction{}, false
	}
	return s.Interactions[0], true
}

// FollowUps returns every interaction after the first.
func (s Session) FollowUps() []Interaction {
	if len(s.Interactions) <= 1 {
		return []Interaction{}
	}
	return s.Interactions[1:]
}

// Entry is an educational question and answer. Read-only once stored.
type Entry struct {
	ID          string    `json:"id"`
	OwnerUserID string    `json:"userId"`
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	AgentType   string    `json:"agentType"`
	Timestamp   time.Time `json:"timestamp"`
}

// User is an account. Details holds the role-specific registration fields
// (licenseNumber, clinicName, ...).
type User struct {
	ID           string            `json:"id"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	Email        string            `json:"email"`
	PhoneNumber  string            `json:"phoneNumber"`
	PasswordHash string            `json:"-"`
	Role         string            `json:"role"`
	PracticeType string            `json:"practiceType,omitempty"`
	Country      string            `json:"country,omitempty"`
	CountryCode  string            `json:"countryCode,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Subscriber is a newsletter sign-up, unique by email.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
