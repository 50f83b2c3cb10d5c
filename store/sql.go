package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Dialect covers the few differences between the supported SQL servers.
type Dialect int

const (
	MySQL Dialect = iota + 1
	Postgres
)

// ParseDialect maps DB_DRIVER to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql":
		return Postgres, nil
	}
	return 0, fmt.Errorf("unsupported sql driver %q", driver)
}

// Rebind rewrites '?' placeholders to '$n' for postgres.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (d Dialect) isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// SQLStore persists to MySQL or Postgres. Schema lives in the migrations package.
type SQLStore struct {
	db *sql.DB
	d  Dialect
}

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, d: d}
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.d.Rebind(q), args...)
}

const sessionCols = "id, user_id, intake, interactions, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		sess             Session
		intakeRaw, itRaw []byte
	)
	if err := r.Scan(&sess.ID, &sess.OwnerUserID, &intakeRaw, &itRaw, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if err := json.Unmarshal(intakeRaw, &sess.Intake); err != nil {
		return Session{}, fmt.Errorf("decode intake: %w", err)
	}
	if err := json.Unmarshal(itRaw, &sess.Interactions); err != nil {
		return Session{}, fmt.Errorf("decode interactions: %w", err)
	}
	if sess.Interactions == nil {
		sess.Interactions = []Interaction{}
	}
	return sess, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, sess Session) error {
	intakeRaw, err := json.Marshal(sess.Intake)
	if err != nil {
		return err
	}
	itRaw, err := json.Marshal(sess.Interactions)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO sessions (id, user_id, intake, interactions, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.OwnerUserID, string(intakeRaw), string(itRaw), sess.CreatedAt, sess.UpdatedAt)
	if s.d.isDuplicate(err) {
		return fmt.Errorf("session %s: %w", sess.ID, ErrConflict)
	}
	return err
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, s.d.Rebind(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`), id)
	return scanSession(row)
}

// AppendInteraction locks the row for the read-modify-write.
func (s *SQLStore) AppendInteraction(ctx context.Context, sessionID string, it Interaction) (Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.d.Rebind(`SELECT `+sessionCols+` FROM sessions WHERE id = ? FOR UPDATE`), sessionID)
	sess, err := scanSession(row)
	if err != nil {
		return Session{}, err
	}
	sess.Interactions = append(sess.Interactions, it)
	sess.UpdatedAt = it.Timestamp
	itRaw, err := json.Marshal(sess.Interactions)
	if err != nil {
		return Session{}, err
	}
	if _, err := tx.ExecContext(ctx, s.d.Rebind(`UPDATE sessions SET interactions = ?, updated_at = ? WHERE id = ?`),
		string(itRaw), sess.UpdatedAt, sessionID); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) ListSessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, s.d.Rebind(`SELECT `+sessionCols+` FROM sessions WHERE user_id = ? ORDER BY seq ASC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateEntry(ctx context.Context, e Entry) error {
	_, err := s.exec(ctx, `INSERT INTO educational_entries (id, user_id, prompt, response, agent_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerUserID, e.Prompt, e.Response, e.AgentType, e.Timestamp)
	if s.d.isDuplicate(err) {
		return fmt.Errorf("entry %s: %w", e.ID, ErrConflict)
	}
	return err
}

func (s *SQLStore) ListEntries(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.d.Rebind(`SELECT id, user_id, prompt, response, agent_type, created_at FROM educational_entries WHERE user_id = ? ORDER BY seq ASC`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OwnerUserID, &e.Prompt, &e.Response, &e.AgentType, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateUser(ctx context.Context, u User) error {
	details, err := json.Marshal(u.Details)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO users (id, first_name, last_name, email, phone_number, password_hash, role, practice_type, country, country_code, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, strings.ToLower(strings.TrimSpace(u.Email)), u.PhoneNumber, u.PasswordHash,
		u.Role, u.PracticeType, u.Country, u.CountryCode, string(details), u.CreatedAt)
	if s.d.isDuplicate(err) {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	return err
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var (
		u       User
		details []byte
	)
	err := s.db.QueryRowContext(ctx, s.d.Rebind(`SELECT id, first_name, last_name, email, phone_number, password_hash, role, practice_type, country, country_code, details, created_at
		FROM users WHERE email = ?`), strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.Role, &u.PracticeType, &u.Country, &u.CountryCode, &details, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &u.Details); err != nil {
			return User{}, fmt.Errorf("decode user details: %w", err)
		}
	}
	return u, nil
}

func (s *SQLStore) UpdatePassword(ctx context.Context, email, hash string) error {
	res, err := s.exec(ctx, `UPDATE users SET password_hash = ? WHERE email = ?`, hash, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CreateSubscriber(ctx context.Context, sub Subscriber) error {
	_, err := s.exec(ctx, `INSERT INTO subscribers (id, email, created_at) VALUES (?, ?, ?)`,
		sub.ID, strings.ToLower(strings.TrimSpace(sub.Email)), sub.CreatedAt)
	if s.d.isDuplicate(err) {
		return fmt.Errorf("subscriber %s: %w", sub.Email, ErrConflict)
	}
	return err
}
