package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"helpmypet-backend/openai"
)

type mockAI struct {
	mu    sync.Mutex
	calls []openai.Request
	fail  int // 1-based call number that fails; 0 never
}

func (m *mockAI) Complete(_ context.Context, req openai.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.fail == len(m.calls) {
		return "", errors.New("upstream down")
	}
	return `{"summary":"ok"}`, nil
}

func TestCompose(t *testing.T) {
	cases := []struct {
		text string
		want []StepName
	}{
		{"Physical examination normal", []StepName{ProcessData, AnalyzeHistory, AnalyzeClinical, WebResearch}},
		{"New symptom noted", []StepName{ProcessData, AnalyzeHistory, Diagnose, WebResearch}},
		{"CLINICAL notes; chronic CONDITION", []StepName{ProcessData, AnalyzeHistory, AnalyzeClinical, Diagnose, WebResearch}},
		{"vaccination record", []StepName{ProcessData, AnalyzeHistory, WebResearch}},
	}
	for _, tc := range cases {
		if got := Compose(tc.text); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Compose(%q)=%v; want %v", tc.text, got, tc.want)
		}
	}
}

const doc = `Patient Name: Bella
Species: Cat
Breed: Siamese
Age: 7 years
Main Complaint: weight loss
Examination: thin body condition`

func TestRunAllSteps(t *testing.T) {
	ai := &mockAI{}
	res := NewRunner(ai).Run(context.Background(), doc)

	if !reflect.DeepEqual(res.Workflow, []StepName{ProcessData, AnalyzeHistory, AnalyzeClinical, Diagnose, WebResearch}) {
		t.Fatalf("workflow=%v", res.Workflow)
	}
	if len(res.Errors) != 0 || !reflect.DeepEqual(res.Steps, res.Workflow) {
		t.Fatalf("steps=%v errors=%v", res.Steps, res.Errors)
	}
	if res.StructuredData["patientName"] != "Bella" || res.StructuredData["species"] != "Cat" || res.StructuredData["mainComplaint"] != "weight loss" {
		t.Fatalf("structured=%v", res.StructuredData)
	}
	if res.HistoricalAnalysis["summary"] != "ok" || res.ResearchFindings["summary"] != "ok" {
		t.Fatalf("analysis missing: %+v", res.State)
	}
	// process_data is local, the other four steps call the model
	if len(ai.calls) != 4 {
		t.Fatalf("calls=%d", len(ai.calls))
	}
	last := ai.calls[3]
	if !strings.Contains(last.User, "Research query:") || !last.JSON {
		t.Fatalf("research request=%+v", last)
	}
}

func TestRunStopsAtFirstError(t *testing.T) {
	ai := &mockAI{fail: 2} // analyze_clinical
	res := NewRunner(ai).Run(context.Background(), doc)

	if !reflect.DeepEqual(res.Steps, []StepName{ProcessData, AnalyzeHistory}) {
		t.Fatalf("steps=%v", res.Steps)
	}
	if len(res.Errors) != 1 || res.Errors[0].Step != AnalyzeClinical || res.Errors[0].Message != "upstream down" {
		t.Fatalf("errors=%+v", res.Errors)
	}
	if res.Errors[0].Timestamp.IsZero() {
		t.Fatal("error timestamp missing")
	}
	if res.HistoricalAnalysis == nil || res.Diagnosis != nil || res.ResearchFindings != nil {
		t.Fatalf("partial state wrong: %+v", res.State)
	}
	if len(ai.calls) != 2 {
		t.Fatalf("pipeline continued after failure: calls=%d", len(ai.calls))
	}
}

func TestStepsDoNotMutateInput(t *testing.T) {
	in := State{Input: doc, Steps: make([]StepName, 1, 8), StructuredData: map[string]string{"x": "y"}}
	in.Steps[0] = ProcessData
	out := in.withStep(AnalyzeHistory)
	if len(in.Steps) != 1 || cap(in.Steps) != 8 {
		t.Fatal("input steps changed")
	}
	full := in.Steps[:2]
	if full[1] == AnalyzeHistory {
		t.Fatal("withStep wrote into the input's backing array")
	}
	if len(out.Steps) != 2 {
		t.Fatalf("out steps=%v", out.Steps)
	}

	next, err := processData(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if in.StructuredData["x"] != "y" || len(in.StructuredData) != 1 {
		t.Fatal("processData modified input map")
	}
	if next.StructuredData["patientName"] != "Bella" {
		t.Fatalf("next=%v", next.StructuredData)
	}
}

func TestRunEmptyDocument(t *testing.T) {
	res := NewRunner(&mockAI{}).Run(context.Background(), "  ")
	if len(res.Errors) != 1 || res.Errors[0].Step != ProcessData {
		t.Fatalf("errors=%+v", res.Errors)
	}
}
