package prompt

import (
	"errors"
	"strings"
	"testing"

	"helpmypet-backend/agents"
	"helpmypet-backend/intake"
	"helpmypet-backend/openai"
)

func rex() intake.ClinicalIntake {
	var c intake.ClinicalIntake
	c.PatientInfo.Name = "Rex"
	c.PatientInfo.Species = "dog"
	c.PatientInfo.Age = "5"
	c.PresentingProblems.MainComplaint = "vomiting"
	return c
}

func TestClinicalInitial(t *testing.T) {
	p, err := Build(ClinicalInitial, Input{Intake: rex()})
	if err != nil {
		t.Fatal(err)
	}
	if !p.JSON() || p.OutputContract != agents.AssessmentJSON {
		t.Fatalf("contract=%v", p.OutputContract)
	}
	for _, frag := range []string{"- Name: Rex", "- Species: dog", "- Breed: Not specified", "- Main Complaint: vomiting", "QUESTION:\nvomiting", `"warningSignals"`} {
		if !strings.Contains(p.User, frag) {
			t.Fatalf("missing %q in:\n%s", frag, p.User)
		}
	}
	if p.Topic.Species != "dog" || p.Topic.Condition != "vomiting" {
		t.Fatalf("topic=%+v", p.Topic)
	}
}

func TestClinicalInitialRequiresComplaint(t *testing.T) {
	c := rex()
	c.PresentingProblems.MainComplaint = "  "
	_, err := Build(ClinicalInitial, Input{Intake: c})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v", err)
	}
}

func TestClinicalFollowUpIncludesHistory(t *testing.T) {
	p, err := Build(ClinicalFollowUp, Input{
		Intake:   rex(),
		Question: "Should we add antibiotics?",
		History: []openai.Turn{
			{Question: "vomiting", Answer: "gastritis likely"},
			{Question: "is it bloody?", Answer: "no"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	iQ1 := strings.Index(p.User, "Q: vomiting")
	iQ2 := strings.Index(p.User, "Q: is it bloody?")
	iNew := strings.Index(p.User, "FOLLOW-UP QUESTION:\nShould we add antibiotics?")
	if iQ1 < 0 || iQ2 < iQ1 || iNew < iQ2 {
		t.Fatalf("history not in order:\n%s", p.User)
	}
	if _, err := Build(ClinicalFollowUp, Input{Intake: rex()}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank follow-up accepted: %v", err)
	}
}

func TestEducationalConstraint(t *testing.T) {
	p, err := Build(Educational, Input{Text: "What causes heaert murmurs in cats?"})
	if err != nil {
		t.Fatal(err)
	}
	if p.JSON() {
		t.Fatal("educational prompts are free text")
	}
	if !strings.Contains(p.System, "Answer ONLY about murmur in cat") {
		t.Fatalf("system=%s", p.System)
	}
	if !strings.Contains(p.User, "heart murmurs") {
		t.Fatalf("user text not sanitized: %q", p.User)
	}
	if _, err := Build(Emergency, Input{Text: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err=%v", err)
	}
}

func TestEducationalPersonaPerWorkflow(t *testing.T) {
	cases := map[Workflow]agents.Kind{
		Educational:        agents.ProfessorAI,
		CaseStudy:          agents.CaseStudyAI,
		Emergency:          agents.EmergencyAI,
		TechnicianGuidance: agents.SeniorTechnicianAI,
	}
	for w, k := range cases {
		p, err := Build(w, Input{Text: "dog with fracture"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(p.System, k.Persona().Instructions) {
			t.Fatalf("%s: wrong persona", w)
		}
		got, ok := ForAgent(k)
		if !ok || got != w {
			t.Fatalf("ForAgent(%s)=%s", k, got)
		}
	}
	if _, ok := ForAgent(agents.WebResearcher); ok {
		t.Fatal("web_researcher has no educational workflow")
	}
}

func TestDocumentAnalysisTruncates(t *testing.T) {
	long := strings.Repeat("é", MaxDocumentRunes+50)
	p, err := Build(DocumentAnalysis, Input{Text: long, Persona: agents.HistoryAnalyzer.Persona(), Step: "analyze_history"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(p.User, "é") != MaxDocumentRunes {
		t.Fatalf("document not truncated to %d runes", MaxDocumentRunes)
	}
	if !p.JSON() || !strings.Contains(p.User, "Workflow step: analyze_history") {
		t.Fatalf("unexpected prompt: %.80s", p.User)
	}
	if _, err := Build(DocumentAnalysis, Input{Text: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing persona accepted: %v", err)
	}
}
