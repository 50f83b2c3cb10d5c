package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelStore keeps everything in an embedded LevelDB as JSON values.
//
// Key layout:
//
//	s/<id>              session JSON
//	e/<id>              educational entry JSON
//	u/<email>           user JSON
//	n/<email>           newsletter subscriber JSON
//	us/<user>/<seq>     -> session id (insertion order)
//	ue/<user>/<seq>     -> entry id (insertion order)
//	meta/seq            last sequence number
type LevelStore struct {
	db  *leveldb.DB
	mu  sync.Mutex // serializes writes and the seq counter
	seq uint64
}

const seqKey = "meta/seq"

// OpenLevel opens (or creates) a LevelDB directory.
func OpenLevel(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	log.Printf("[store][leveldb] opened path=%s", path)
	return newLevel(db)
}

// OpenLevelMemory opens a store that lives only in memory.
func OpenLevelMemory() (*LevelStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return newLevel(db)
}

func newLevel(db *leveldb.DB) (*LevelStore, error) {
	ls := &LevelStore{db: db}
	v, err := db.Get([]byte(seqKey), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
	case err != nil:
		db.Close()
		return nil, err
	default:
		n, perr := strconv.ParseUint(string(v), 10, 64)
		if perr != nil {
			db.Close()
			return nil, fmt.Errorf("corrupt %s: %w", seqKey, perr)
		}
		ls.seq = n
	}
	return ls, nil
}

func (l *LevelStore) Close() error { return l.db.Close() }

// nextSeq must be called with l.mu held; the new value is written with the batch.
func (l *LevelStore) nextSeq(b *leveldb.Batch) string {
	l.seq++
	b.Put([]byte(seqKey), []byte(strconv.FormatUint(l.seq, 10)))
	return fmt.Sprintf("%020d", l.seq)
}

func (l *LevelStore) getJSON(key string, v any) error {
	raw, err := l.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (l *LevelStore) has(key string) (bool, error) {
	return l.db.Has([]byte(key), nil)
}

// indexed returns the ids stored under an index prefix, in key order.
func (l *LevelStore) indexed(prefix string) ([]string, error) {
	it := l.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()
	var ids []string
	for it.Next() {
		ids = append(ids, string(it.Value()))
	}
	return ids, it.Error()
}

func (l *LevelStore) CreateSession(_ context.Context, s Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok, err := l.has("s/" + s.ID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("session %s: %w", s.ID, ErrConflict)
	}
	b := new(leveldb.Batch)
	b.Put([]byte("s/"+s.ID), raw)
	b.Put([]byte("us/"+s.OwnerUserID+"/"+l.nextSeq(b)), []byte(s.ID))
	return l.db.Write(b, nil)
}

func (l *LevelStore) GetSession(_ context.Context, id string) (Session, error) {
	var s Session
	if err := l.getJSON("s/"+id, &s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (l *LevelStore) AppendInteraction(_ context.Context, sessionID string, it Interaction) (Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var s Session
	if err := l.getJSON("s/"+sessionID, &s); err != nil {
		return Session{}, err
	}
	s.Interactions = append(s.Interactions, it)
	s.UpdatedAt = it.Timestamp
	raw, err := json.Marshal(s)
	if err != nil {
		return Session{}, err
	}
	if err := l.db.Put([]byte("s/"+sessionID), raw, nil); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (l *LevelStore) ListSessions(_ context.Context, userID string) ([]Session, error) {
	ids, err := l.indexed("us/" + userID + "/")
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(ids))
	for _, id := range ids {
		var s Session
		if err := l.getJSON("s/"+id, &s); err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (l *LevelStore) CreateEntry(_ context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b := new(leveldb.Batch)
	b.Put([]byte("e/"+e.ID), raw)
	b.Put([]byte("ue/"+e.OwnerUserID+"/"+l.nextSeq(b)), []byte(e.ID))
	return l.db.Write(b, nil)
}

func (l *LevelStore) ListEntries(_ context.Context, userID string) ([]Entry, error) {
	ids, err := l.indexed("ue/" + userID + "/")
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		var e Entry
		if err := l.getJSON("e/"+id, &e); err != nil {
			return nil, fmt.Errorf("entry %s: %w", id, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func userKey(email string) string { return "u/" + strings.ToLower(strings.TrimSpace(email)) }

func (l *LevelStore) CreateUser(_ context.Context, u User) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := userKey(u.Email)
	if ok, err := l.has(key); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("user %s: %w", u.Email, ErrConflict)
	}
	raw, err := json.Marshal(levelUser{User: u, PasswordHash: u.PasswordHash})
	if err != nil {
		return err
	}
	return l.db.Put([]byte(key), raw, nil)
}

func (l *LevelStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	var lu levelUser
	if err := l.getJSON(userKey(email), &lu); err != nil {
		return User{}, err
	}
	u := lu.User
	u.PasswordHash = lu.PasswordHash
	return u, nil
}

func (l *LevelStore) UpdatePassword(_ context.Context, email, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var lu levelUser
	if err := l.getJSON(userKey(email), &lu); err != nil {
		return err
	}
	lu.PasswordHash = hash
	raw, err := json.Marshal(lu)
	if err != nil {
		return err
	}
	return l.db.Put([]byte(userKey(email)), raw, nil)
}

// levelUser persists the hash that User hides from JSON responses.
type levelUser struct {
	User
	PasswordHash string `json:"passwordHash"`
}

func subscriberKey(email string) string { return "n/" + strings.ToLower(strings.TrimSpace(email)) }

func (l *LevelStore) CreateSubscriber(_ context.Context, sub Subscriber) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := subscriberKey(sub.Email)
	if ok, err := l.has(key); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("subscriber %s: %w", sub.Email, ErrConflict)
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return l.db.Put([]byte(key), raw, nil)
}
