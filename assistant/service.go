package assistant

import (
	"context"
	"log"
	"strings"
	"time"

	"helpmypet-backend/agents"
	"helpmypet-backend/assessment"
	"helpmypet-backend/intake"
	"helpmypet-backend/openai"
	"helpmypet-backend/prompt"
	"helpmypet-backend/sessions"
	"helpmypet-backend/store"
	"helpmypet-backend/topic"
	"helpmypet-backend/workflow"
)

// Service is the single entry point for clinical, educational and document requests.
type Service struct {
	ai            openai.Completer
	sessions      *sessions.Manager
	runner        *workflow.Runner
	historyWindow int
}

// NewService wires the orchestrator. historyWindow <= 0 replays every prior turn.
func NewService(ai openai.Completer, m *sessions.Manager, historyWindow int) *Service {
	return &Service{ai: ai, sessions: m, runner: workflow.NewRunner(ai), historyWindow: historyWindow}
}

type ClinicalRequest struct {
	SessionID string
	Intake    intake.ClinicalIntake
	Question  string
}

type ClinicalResult struct {
	Response  assessment.Response
	Formatted string
	SessionID string
	Degraded  bool
	Session   store.Session
}

// SubmitClinical starts a new session when SessionID is empty, otherwise answers a
// follow-up on the caller's existing session.
func (s *Service) SubmitClinical(ctx context.Context, userID string, req ClinicalRequest) (ClinicalResult, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return s.startClinical(ctx, userID, req)
	}
	return s.followUp(ctx, userID, req)
}

func (s *Service) startClinical(ctx context.Context, userID string, req ClinicalRequest) (ClinicalResult, error) {
	start := time.Now()
	if err := sessions.ValidateIntake(req.Intake); err != nil {
		return ClinicalResult{}, err
	}
	p, err := prompt.Build(prompt.ClinicalInitial, prompt.Input{Intake: req.Intake, Question: req.Question})
	if err != nil {
		return ClinicalResult{}, err
	}
	raw, err := s.ai.Complete(ctx, openai.Request{System: p.System, User: p.User, JSON: true})
	if err != nil {
		return ClinicalResult{}, err
	}
	resp, degraded := assessment.Normalize(raw)
	sess, err := s.sessions.Start(ctx, userID, req.Intake, req.Question, resp, degraded)
	if err != nil {
		return ClinicalResult{}, err
	}
	log.Printf("[prompt][clinical] user=%s session=%s kind=initial degraded=%v elapsed_ms=%d",
		userID, sess.ID, degraded, time.Since(start).Milliseconds())
	return ClinicalResult{Response: resp, Formatted: assessment.Format(resp), SessionID: sess.ID, Degraded: degraded, Session: sess}, nil
}

func (s *Service) followUp(ctx context.Context, userID string, req ClinicalRequest) (ClinicalResult, error) {
	start := time.Now()
	if strings.TrimSpace(req.Question) == "" {
		return ClinicalResult{}, sessions.ValidationError{Field: "question"}
	}
	// the whole read -> model -> append turn runs under the session lock
	unlock := s.sessions.Lock(req.SessionID)
	defer unlock()

	sess, err := s.sessions.Get(ctx, userID, req.SessionID)
	if err != nil {
		return ClinicalResult{}, err
	}
	turns := make([]openai.Turn, 0, len(sess.Interactions))
	for _, it := range sess.Interactions {
		turns = append(turns, openai.Turn{Question: it.Question, Answer: assessment.Format(it.Response)})
	}
	p, err := prompt.Build(prompt.ClinicalFollowUp, prompt.Input{
		Intake:   sess.Intake,
		Question: req.Question,
		History:  openai.Window(turns, s.historyWindow),
	})
	if err != nil {
		return ClinicalResult{}, err
	}
	raw, err := s.ai.Complete(ctx, openai.Request{System: p.System, User: p.User, JSON: true})
	if err != nil {
		return ClinicalResult{}, err
	}
	resp, degraded := assessment.Normalize(raw)
	sess, err = s.sessions.AppendFollowUp(ctx, userID, req.SessionID, req.Question, resp, degraded)
	if err != nil {
		return ClinicalResult{}, err
	}
	log.Printf("[prompt][clinical] user=%s session=%s kind=follow_up turns=%d degraded=%v elapsed_ms=%d",
		userID, sess.ID, len(sess.Interactions), degraded, time.Since(start).Milliseconds())
	return ClinicalResult{Response: resp, Formatted: assessment.Format(resp), SessionID: sess.ID, Degraded: degraded, Session: sess}, nil
}

type EducationalResult struct {
	Response  string
	AgentType string
	Topic     topic.Topic
	EntryID   string
}

// surfaceFor lets technicians reach the technician persona on the educational routes.
func surfaceFor(role string) agents.Surface {
	if strings.EqualFold(role, "technician") {
		return agents.SurfaceTechnician
	}
	return agents.SurfaceEducational
}

// SubmitEducational answers a free-text question with the selected persona and
// records it in the user's educational history.
func (s *Service) SubmitEducational(ctx context.Context, userID, role, agentType, text string) (EducationalResult, error) {
	start := time.Now()
	persona, err := agents.ResolveFor(surfaceFor(role), agentType)
	if err != nil {
		return EducationalResult{}, err
	}
	wf, _ := prompt.ForAgent(persona.Kind)
	p, err := prompt.Build(wf, prompt.Input{Text: text})
	if err != nil {
		return EducationalResult{}, err
	}
	answer, err := s.ai.Complete(ctx, openai.Request{System: p.System, User: p.User})
	if err != nil {
		return EducationalResult{}, err
	}
	entry, err := s.sessions.RecordEducational(ctx, userID, persona.Key(), p.User, answer)
	if err != nil {
		return EducationalResult{}, err
	}
	log.Printf("[prompt][educational] user=%s agent=%s species=%q condition=%q elapsed_ms=%d",
		userID, persona.Key(), p.Topic.Species, p.Topic.Condition, time.Since(start).Milliseconds())
	return EducationalResult{Response: answer, AgentType: persona.Key(), Topic: p.Topic, EntryID: entry.ID}, nil
}

func (s *Service) GetHistory(ctx context.Context, userID string) ([]sessions.HistoryItem, error) {
	return s.sessions.ListHistory(ctx, userID)
}

func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (store.Session, error) {
	return s.sessions.Get(ctx, userID, sessionID)
}

// AnalyzeDocument runs the composed workflow over extracted document text.
func (s *Service) AnalyzeDocument(ctx context.Context, text string) workflow.AnalysisResult {
	return s.runner.Run(ctx, text)
}
