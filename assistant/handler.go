package assistant

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"helpmypet-backend/agents"
	"helpmypet-backend/files"
	"helpmypet-backend/intake"
	"helpmypet-backend/openai"
	"helpmypet-backend/prompt"
	"helpmypet-backend/sessions"
	"helpmypet-backend/store"
	"helpmypet-backend/workflow"
)

type Handler struct {
	svc            *Service
	timeout        time.Duration
	uploadMaxBytes int64
}

// NewHandler builds the HTTP layer. timeout bounds a whole request, including the
// fallback attempt; an upload gets it once per model-backed workflow step.
func NewHandler(svc *Service, timeout time.Duration, uploadMaxBytes int64) *Handler {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = 5 << 20
	}
	return &Handler{svc: svc, timeout: timeout, uploadMaxBytes: uploadMaxBytes}
}

// RegisterRoutes expects r to be behind the auth middleware.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/prompt/submit", h.Submit)
	r.POST("/prompt/educational", h.educational(""))
	r.POST("/prompt/case-study", h.educational(agents.CaseStudyAI.String()))
	r.POST("/prompt/emergency", h.educational(agents.EmergencyAI.String()))
	r.GET("/prompt/history", h.History)
	r.GET("/prompt/sessions/:id", h.Session)
	r.POST("/upload", h.Upload)
}

// --- Request models --- //

type submitReq struct {
	SessionID          string                    `json:"sessionId"`
	Prompt             string                    `json:"prompt"`
	PatientInfo        intake.PatientInfo        `json:"patientInfo"`
	Vitals             intake.Vitals             `json:"vitals"`
	ClinicalExam       intake.ClinicalExam       `json:"clinicalExam"`
	ClinicalExamLegacy *intake.ClinicalExam      `json:"clinicalExamination"`
	PresentingProblems intake.PresentingProblems `json:"presentingProblems"`
}

func (r submitReq) intake() intake.ClinicalIntake {
	exam := r.ClinicalExam
	if r.ClinicalExamLegacy != nil && exam == (intake.ClinicalExam{}) {
		exam = *r.ClinicalExamLegacy
	}
	return intake.ClinicalIntake{
		PatientInfo:        r.PatientInfo,
		Vitals:             r.Vitals,
		ClinicalExam:       exam,
		PresentingProblems: r.PresentingProblems,
	}
}

type educationalReq struct {
	Prompt    string `json:"prompt"`
	AgentType string `json:"agentType"`
}

// --- Handlers --- //

// Submit handles both the first clinical question and follow-ups.
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.SubmitClinical(ctx, userID, ClinicalRequest{
		SessionID: strings.TrimSpace(req.SessionID),
		Intake:    req.intake(),
		Question:  req.Prompt,
	})
	if err != nil {
		respondError(c, "submit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  res.Response,
		"formatted": res.Formatted,
		"sessionId": res.SessionID,
		"degraded":  res.Degraded,
	})
}

// educational serves the three educational routes; fixed pins the agent for
// /case-study and /emergency.
func (h *Handler) educational(fixed string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		var req educationalReq
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid body")
			return
		}
		agentType := req.AgentType
		if fixed != "" {
			agentType = fixed
		} else if strings.TrimSpace(agentType) == "" {
			agentType = agents.ProfessorAI.String()
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()

		res, err := h.svc.SubmitEducational(ctx, userID, c.GetString("role"), agentType, req.Prompt)
		if err != nil {
			respondError(c, "educational", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"response":  res.Response,
			"agentType": res.AgentType,
			"topic":     res.Topic,
			"entryId":   res.EntryID,
		})
	}
}

func (h *Handler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	items, err := h.svc.GetHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": items})
}

func (h *Handler) Session(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sess, err := h.svc.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, "session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": sess})
}

var allowedUploads = map[string]bool{".txt": true, ".pdf": true}

// Upload extracts text from a .txt or .pdf and runs the analysis workflow on it.
func (h *Handler) Upload(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "file is required")
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedUploads[ext] {
		fail(c, http.StatusBadRequest, "only .txt and .pdf files are supported")
		return
	}
	if fh.Size > h.uploadMaxBytes {
		fail(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.uploadMaxBytes))
	if err != nil {
		fail(c, http.StatusBadRequest, "cannot read file")
		return
	}
	text := files.ExtractText(fh.Filename, data)
	if strings.TrimSpace(text) == "" {
		fail(c, http.StatusBadRequest, "no text could be extracted from the file")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.uploadTimeout(text))
	defer cancel()

	analysis := h.svc.AnalyzeDocument(ctx, text)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"analysis": analysis,
		"text":     text,
		"filename": fh.Filename,
	})
}

// --- Helpers --- //

// uploadTimeout gives every model-backed workflow step the full per-request budget.
func (h *Handler) uploadTimeout(text string) time.Duration {
	n := 0
	for _, s := range workflow.Compose(text) {
		if s != workflow.ProcessData {
			n++
		}
	}
	if n < 1 {
		n = 1
	}
	return time.Duration(n) * h.timeout
}

func requireUser(c *gin.Context) (string, bool) {
	id := c.GetString("userId")
	if id == "" {
		fail(c, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return id, true
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"success": false, "error": msg})
}

func respondError(c *gin.Context, route string, err error) {
	code := httpStatus(err)
	log.Printf("[prompt][%s][error] user=%s status=%d err=%v", route, c.GetString("userId"), code, err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	fail(c, code, msg)
}

func httpStatus(err error) int {
	var ve sessions.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, prompt.ErrInvalidInput), errors.Is(err, agents.ErrUnknownAgent):
		return http.StatusBadRequest
	case errors.Is(err, agents.ErrAgentNotAllowed), errors.Is(err, sessions.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, openai.ErrLLMUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
