package login

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"helpmypet-backend/countries"
	"helpmypet-backend/email"
	"helpmypet-backend/store"
)

// Handler serves registration, login and password reset under /api/auth.
type Handler struct {
	store  store.Store
	signer *Signer
	codes  *ResetCodes
	mail   email.Sender
	cost   int
	now    func() time.Time
}

func NewHandler(st store.Store, signer *Signer, codes *ResetCodes, mail email.Sender) *Handler {
	return &Handler{store: st, signer: signer, codes: codes, mail: mail, cost: bcrypt.DefaultCost, now: time.Now}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/reset-password", h.ResetPassword)
	r.POST("/verify-reset", h.VerifyReset)
	r.GET("/session", h.signer.Middleware(), h.Session)
}

// flexString accepts a JSON string or number; the sign-up form sends
// experience and graduationYear either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type registerReq struct {
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Email           string     `json:"email"`
	PhoneNumber     string     `json:"phoneNumber"`
	Password        string     `json:"password"`
	Role            string     `json:"role"`
	PracticeType    string     `json:"practiceType"`
	Country         string     `json:"country"`
	CountryCode     string     `json:"countryCode"`
	LicenseNumber   flexString `json:"licenseNumber"`
	Experience      flexString `json:"experience"`
	CertificationID flexString `json:"certificationID"`
	ClinicName      flexString `json:"clinicName"`
	University      flexString `json:"university"`
	GraduationYear  flexString `json:"graduationYear"`
}

// roleFields lists the extra fields each role must provide.
var roleFields = map[string][]string{
	"doctor":     {"licenseNumber", "experience"},
	"technician": {"certificationID", "clinicName"},
	"student":    {"university", "graduationYear"},
}

func (r registerReq) extra() map[string]string {
	all := map[string]string{
		"licenseNumber":   string(r.LicenseNumber),
		"experience":      string(r.Experience),
		"certificationID": string(r.CertificationID),
		"clinicName":      string(r.ClinicName),
		"university":      string(r.University),
		"graduationYear":  string(r.GraduationYear),
	}
	out := map[string]string{}
	for _, f := range roleFields[r.Role] {
		out[f] = strings.TrimSpace(all[f])
	}
	return out
}

var phoneRe = regexp.MustCompile(`^\d{10}$`)

// validate returns a client-facing message, or "" when the request is acceptable.
func (r *registerReq) validate() string {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	for _, v := range []string{r.FirstName, r.LastName, r.Email, r.PhoneNumber, r.Password, r.Role, r.PracticeType} {
		if strings.TrimSpace(v) == "" {
			return "All fields are required"
		}
	}
	if !phoneRe.MatchString(r.PhoneNumber) {
		return "Phone number must be 10 digits"
	}
	if _, ok := roleFields[r.Role]; !ok {
		return "Invalid role"
	}
	extra := r.extra()
	for _, f := range roleFields[r.Role] {
		if extra[f] == "" {
			return "Missing field for " + r.Role + ": " + f
		}
	}
	if len(r.Password) > 72 {
		return "Password is too long"
	}
	if r.CountryCode != "" {
		c, ok := countries.Lookup(r.CountryCode)
		if !ok {
			return "Unsupported country code"
		}
		if strings.TrimSpace(r.Country) == "" {
			r.Country = c.Name
		}
	}
	return ""
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
	if err != nil {
		log.Printf("[auth][register][error] email=%s err=%v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	u := store.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: string(hash),
		Role:         req.Role,
		PracticeType: strings.TrimSpace(req.PracticeType),
		Country:      strings.TrimSpace(req.Country),
		CountryCode:  strings.TrimSpace(req.CountryCode),
		Details:      req.extra(),
		CreatedAt:    h.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if err := h.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists."})
			return
		}
		log.Printf("[auth][register][error] email=%s err=%v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	log.Printf("[auth][register] user=%s role=%s", u.ID, u.Role)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": u})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if req.Email == "" || req.Password == "" || req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email, password and role are required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	u, err := h.store.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("[auth][login][error] email=%s err=%v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if err != nil || u.Role != req.Role || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	token, exp, err := h.signer.Sign(u.ID, u.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	log.Printf("[auth][login] user=%s role=%s", u.ID, u.Role)
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": exp, "user": u})
}

// Session echoes the claims of a valid token.
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userId":     c.GetString("userId"),
		"role":       c.GetString("role"),
		"expires_at": c.Writer.Header().Get("X-Token-Expires-At"),
	})
}

type resetReq struct {
	Email string `json:"email"`
}

// ResetPassword mails a reset code. Unknown addresses get the same answer.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email is required"})
		return
	}
	addr := normEmail(req.Email)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	ok := gin.H{"message": "If the account exists, a reset code has been sent"}
	if _, err := h.store.GetUserByEmail(ctx, addr); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[auth][reset][error] email=%s err=%v", addr, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, ok)
		return
	}
	code, err := h.codes.Issue(addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if err := h.mail.SendResetCode(addr, code, int(h.codes.TTL()/time.Minute)); err != nil {
		log.Printf("[auth][reset][mail_error] email=%s err=%v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send reset code"})
		return
	}
	log.Printf("[auth][reset] code issued email=%s", addr)
	c.JSON(http.StatusOK, ok)
}

type verifyReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) VerifyReset(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Code == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email, code and newPassword are required"})
		return
	}
	if len(req.NewPassword) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password is too long"})
		return
	}
	addr := normEmail(req.Email)
	switch err := h.codes.Verify(addr, req.Code); {
	case errors.Is(err, ErrExpiredCode):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Reset code has expired"})
		return
	case errors.Is(err, ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many attempts, request a new reset code"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid reset code"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.cost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	if err := h.store.UpdatePassword(ctx, addr, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid reset code"})
			return
		}
		log.Printf("[auth][verify_reset][error] email=%s err=%v", addr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	log.Printf("[auth][verify_reset] password updated email=%s", addr)
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
