package login

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidCode = errors.New("invalid reset code")
	ErrExpiredCode = errors.New("reset code has expired")
	// ErrTooManyAttempts means the pending code was burned after maxResetAttempts misses.
	ErrTooManyAttempts = errors.New("too many reset code attempts")
)

const maxResetAttempts = 5

type resetCode struct {
	code     string
	expiry   time.Time
	failures int
}

// ResetCodes holds one pending password reset code per e-mail.
type ResetCodes struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	codes map[string]resetCode
}

func NewResetCodes(ttl time.Duration) *ResetCodes {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResetCodes{ttl: ttl, now: time.Now, codes: map[string]resetCode{}}
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Issue replaces any pending code for email with a fresh 6-digit one.
func (r *ResetCodes) Issue(email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)
	r.mu.Lock()
	r.codes[normEmail(email)] = resetCode{code: code, expiry: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return code, nil
}

// Verify consumes the code on success. An expired code is removed. A wrong code
// counts against the pending one, which is dropped on the maxResetAttempts-th miss.
func (r *ResetCodes) Verify(email, code string) error {
	key := normEmail(email)
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.codes[key]
	if !ok {
		return ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(rc.code), []byte(strings.TrimSpace(code))) != 1 {
		rc.failures++
		if rc.failures >= maxResetAttempts {
			delete(r.codes, key)
			log.Printf("[auth][reset] code burned after %d failures email=%s", rc.failures, key)
			return ErrTooManyAttempts
		}
		r.codes[key] = rc
		return ErrInvalidCode
	}
	delete(r.codes, key)
	if r.now().After(rc.expiry) {
		return ErrExpiredCode
	}
	return nil
}

// TTL is the validity window of an issued code.
func (r *ResetCodes) TTL() time.Duration { return r.ttl }

// Sweep drops codes expired at now and reports how many were removed.
func (r *ResetCodes) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, rc := range r.codes {
		if now.After(rc.expiry) {
			delete(r.codes, k)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *ResetCodes) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if n := r.Sweep(now); n > 0 {
					log.Printf("[auth][reset][sweep] removed=%d", n)
				}
			}
		}
	}()
}
