package newsletter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"helpmypet-backend/email"
	"helpmypet-backend/store"
)

var _ Mailer = email.SMTP{}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMailer) SendNewsletterWelcome(to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return f.err
}

func setup(t *testing.T, mail *fakeMailer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.OpenLevelMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	r := gin.New()
	NewHandler(st, mail).RegisterRoutes(r.Group("/api"))
	return r
}

func subscribe(r *gin.Engine, body string) (int, string) {
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out.Message
}

func TestSubscribe(t *testing.T) {
	mail := &fakeMailer{}
	r := setup(t, mail)

	code, msg := subscribe(r, `{"email":" Owner@Home.test "}`)
	if code != http.StatusCreated || msg != "Successfully subscribed" {
		t.Fatalf("code=%d msg=%q", code, msg)
	}
	if len(mail.sent) != 1 || mail.sent[0] != "owner@home.test" {
		t.Fatalf("sent=%v", mail.sent)
	}

	code, msg = subscribe(r, `{"email":"owner@home.test"}`)
	if code != http.StatusBadRequest || msg != "Email already subscribed" {
		t.Fatalf("duplicate: code=%d msg=%q", code, msg)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("welcome mail resent: %v", mail.sent)
	}
}

func TestSubscribeRejectsBadEmail(t *testing.T) {
	mail := &fakeMailer{}
	r := setup(t, mail)
	for _, body := range []string{`{}`, `{"email":"not-an-address"}`, `not json`} {
		if code, _ := subscribe(r, body); code != http.StatusBadRequest {
			t.Fatalf("%s: code=%d", body, code)
		}
	}
	if len(mail.sent) != 0 {
		t.Fatalf("sent=%v", mail.sent)
	}
}

func TestSubscribeMailFailureKeepsSubscription(t *testing.T) {
	mail := &fakeMailer{err: errors.New("smtp down")}
	r := setup(t, mail)
	if code, _ := subscribe(r, `{"email":"owner@home.test"}`); code != http.StatusCreated {
		t.Fatalf("code=%d", code)
	}
	if code, msg := subscribe(r, `{"email":"owner@home.test"}`); code != http.StatusBadRequest || msg != "Email already subscribed" {
		t.Fatalf("code=%d msg=%q", code, msg)
	}
}
