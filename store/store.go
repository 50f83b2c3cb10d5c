package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Store is the persistence port used by sessions, login and the newsletter.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	// AppendInteraction appends atomically and refreshes UpdatedAt to it.Timestamp.
	AppendInteraction(ctx context.Context, sessionID string, it Interaction) (Session, error)
	// ListSessions returns the user's sessions in insertion order.
	ListSessions(ctx context.Context, userID string) ([]Session, error)

	CreateEntry(ctx context.Context, e Entry) error
	// ListEntries returns the user's educational entries in insertion order.
	ListEntries(ctx context.Context, userID string) ([]Entry, error)

	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdatePassword(ctx context.Context, email, hash string) error

	// CreateSubscriber returns ErrConflict when the email is already subscribed.
	CreateSubscriber(ctx context.Context, sub Subscriber) error

	Close() error
}
