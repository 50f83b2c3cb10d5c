// Package newsletter serves the landing page sign-up.
package newsletter

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"helpmypet-backend/store"
)

// Mailer sends the welcome mail. email.SMTP satisfies it.
type Mailer interface {
	SendNewsletterWelcome(to string) error
}

type Handler struct {
	store store.Store
	mail  Mailer
	now   func() time.Time
}

func NewHandler(st store.Store, mail Mailer) *Handler {
	return &Handler{store: st, mail: mail, now: time.Now}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/subscribe", h.Subscribe)
}

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type subscribeReq struct {
	Email string `json:"email"`
}

// Subscribe records the address and sends a welcome mail. A failed mail is
// logged; the subscription stands.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRe.MatchString(addr) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "A valid email is required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	sub := store.Subscriber{ID: uuid.NewString(), Email: addr, CreatedAt: h.now().UTC()}
	if err := h.store.CreateSubscriber(ctx, sub); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email already subscribed"})
			return
		}
		log.Printf("[newsletter][subscribe][error] email=%s err=%v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error processing subscription"})
		return
	}
	if err := h.mail.SendNewsletterWelcome(addr); err != nil {
		log.Printf("[newsletter][subscribe][mail_error] email=%s err=%v", addr, err)
	}
	log.Printf("[newsletter][subscribe] email=%s", addr)
	c.JSON(http.StatusCreated, gin.H{"message": "Successfully subscribed"})
}
