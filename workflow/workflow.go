package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"helpmypet-backend/agents"
	"helpmypet-backend/assessment"
	"helpmypet-backend/openai"
	"helpmypet-backend/prompt"
	"helpmypet-backend/topic"
)

type StepName string

const (
	ProcessData     StepName = "process_data"
	AnalyzeHistory  StepName = "analyze_history"
	AnalyzeClinical StepName = "analyze_clinical"
	Diagnose        StepName = "diagnose"
	WebResearch     StepName = "web_research"
)

// Compose picks the steps for a document. process_data and analyze_history always run,
// web_research always runs last.
func Compose(text string) []StepName {
	lower := strings.ToLower(text)
	steps := []StepName{ProcessData, AnalyzeHistory}
	if strings.Contains(lower, "clinical") || strings.Contains(lower, "examination") {
		steps = append(steps, AnalyzeClinical)
	}
	if strings.Contains(lower, "symptom") || strings.Contains(lower, "condition") {
		steps = append(steps, Diagnose)
	}
	return append(steps, WebResearch)
}

type StepError struct {
	Timestamp time.Time `json:"timestamp"`
	Step      StepName  `json:"step"`
	Message   string    `json:"message"`
}

// State is threaded by value through the steps. A step returns a new State and never
// writes to the maps or slices of the one it received.
type State struct {
	Input              string            `json:"-"`
	StructuredData     map[string]string `json:"structuredData,omitempty"`
	HistoricalAnalysis map[string]any    `json:"historicalAnalysis,omitempty"`
	ClinicalAnalysis   map[string]any    `json:"clinicalAnalysis,omitempty"`
	Diagnosis          map[string]any    `json:"diagnosis,omitempty"`
	ResearchFindings   map[string]any    `json:"researchFindings,omitempty"`
	Steps              []StepName        `json:"stepsCompleted"`
	Errors             []StepError       `json:"errors"`
}

func (s State) withStep(name StepName) State {
	s.Steps = append(append(make([]StepName, 0, len(s.Steps)+1), s.Steps...), name)
	return s
}

func (s State) withError(name StepName, err error, at time.Time) State {
	s.Errors = append(append(make([]StepError, 0, len(s.Errors)+1), s.Errors...),
		StepError{Timestamp: at, Step: name, Message: err.Error()})
	return s
}

// Step is a pure transition from one state to the next.
type Step func(ctx context.Context, s State) (State, error)

// AnalysisResult is what the upload endpoint returns.
type AnalysisResult struct {
	Workflow []StepName `json:"workflow"`
	State
}

type Runner struct {
	ai  openai.Completer
	now func() time.Time
}

func NewRunner(ai openai.Completer) *Runner {
	return &Runner{ai: ai, now: func() time.Time { return time.Now().UTC() }}
}

// Run folds the composed steps over an empty state. The first failing step stops the
// pipeline and is recorded in Errors; whatever was computed before it is kept.
func (r *Runner) Run(ctx context.Context, text string) AnalysisResult {
	names := Compose(text)
	state := State{Input: text, Steps: []StepName{}, Errors: []StepError{}}
	for _, name := range names {
		next, err := r.step(name)(ctx, state)
		if err != nil {
			log.Printf("[workflow][step_error] step=%s err=%v", name, err)
			state = state.withError(name, err, r.now())
			break
		}
		state = next.withStep(name)
	}
	return AnalysisResult{Workflow: names, State: state}
}

func (r *Runner) step(name StepName) Step {
	switch name {
	case ProcessData:
		return processData
	case AnalyzeHistory:
		return r.llmStep(name, agents.HistoryAnalyzer, func(s State, out map[string]any) State {
			s.HistoricalAnalysis = out
			return s
		})
	case AnalyzeClinical:
		return r.llmStep(name, agents.SeniorDoctorAI, func(s State, out map[string]any) State {
			s.ClinicalAnalysis = out
			return s
		})
	case Diagnose:
		return r.llmStep(name, agents.SeniorDoctorAI, func(s State, out map[string]any) State {
			s.Diagnosis = out
			return s
		})
	case WebResearch:
		return r.llmStep(name, agents.WebResearcher, func(s State, out map[string]any) State {
			s.ResearchFindings = out
			return s
		})
	}
	return func(_ context.Context, s State) (State, error) {
		return s, fmt.Errorf("unknown step %q", name)
	}
}

func (r *Runner) llmStep(name StepName, kind agents.Kind, set func(State, map[string]any) State) Step {
	return func(ctx context.Context, s State) (State, error) {
		text := s.Input
		if name == WebResearch {
			t := topic.Extract(s.Input)
			text = fmt.Sprintf("Research query: %s in %s\n\n%s", t.Condition, t.Species, s.Input)
		}
		p, err := prompt.Build(prompt.DocumentAnalysis, prompt.Input{Text: text, Persona: kind.Persona(), Step: string(name)})
		if err != nil {
			return s, err
		}
		raw, err := r.ai.Complete(ctx, openai.Request{System: p.System, User: p.User, JSON: p.JSON()})
		if err != nil {
			return s, err
		}
		out, _ := assessment.NormalizeObject(raw)
		return set(s, out), nil
	}
}

var fieldPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"patientName", regexp.MustCompile(`(?i)Patient Name:?[ \t]*([^\n]*)`)},
	{"species", regexp.MustCompile(`(?i)Species:?[ \t]*([^\n]*)`)},
	{"breed", regexp.MustCompile(`(?i)Breed:?[ \t]*([^\n]*)`)},
	{"age", regexp.MustCompile(`(?i)\bAge:?[ \t]*([^\n]*)`)},
	{"weight", regexp.MustCompile(`(?i)Weight:?[ \t]*([^\n]*)`)},
	{"mainComplaint", regexp.MustCompile(`(?i)Main Complaint:?[ \t]*([^\n]*)`)},
	{"duration", regexp.MustCompile(`(?i)Duration:?[ \t]*([^\n]*)`)},
	{"progression", regexp.MustCompile(`(?i)Progression:?[ \t]*([^\n]*)`)},
	{"assessment", regexp.MustCompile(`(?i)Assessment:?[ \t]*([^\n]*)`)},
	{"recommendations", regexp.MustCompile(`(?i)Recommendations:?[ \t]*([^\n]*)`)},
}

var errEmptyDocument = errors.New("document text is empty")

// processData extracts labelled lines locally; no model call.
func processData(_ context.Context, s State) (State, error) {
	if strings.TrimSpace(s.Input) == "" {
		return s, errEmptyDocument
	}
	data := make(map[string]string, len(fieldPatterns))
	for _, f := range fieldPatterns {
		if m := f.re.FindStringSubmatch(s.Input); len(m) == 2 {
			if v := strings.TrimSpace(m[1]); v != "" {
				data[f.key] = v
			}
		}
	}
	s.StructuredData = data
	return s, nil
}
