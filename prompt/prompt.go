package prompt

import (
	"errors"
	"fmt"
	"strings"

	"helpmypet-backend/agents"
	"helpmypet-backend/intake"
	"helpmypet-backend/openai"
	"helpmypet-backend/topic"
)

var ErrInvalidInput = errors.New("invalid prompt input")

// Workflow selects the prompt template.
type Workflow int

const (
	ClinicalInitial Workflow = iota + 1
	ClinicalFollowUp
	Educational
	CaseStudy
	Emergency
	TechnicianGuidance
	DocumentAnalysis
)

func (w Workflow) String() string {
	switch w {
	case ClinicalInitial:
		return "clinical_initial"
	case ClinicalFollowUp:
		return "clinical_follow_up"
	case Educational:
		return "educational"
	case CaseStudy:
		return "case_study"
	case Emergency:
		return "emergency"
	case TechnicianGuidance:
		return "technician_guidance"
	case DocumentAnalysis:
		return "document_analysis"
	}
	return fmt.Sprintf("Workflow(%d)", int(w))
}

// ForAgent maps an educational-surface agent to its workflow.
func ForAgent(k agents.Kind) (Workflow, bool) {
	switch k {
	case agents.ProfessorAI:
		return Educational, true
	case agents.CaseStudyAI:
		return CaseStudy, true
	case agents.EmergencyAI:
		return Emergency, true
	case agents.SeniorTechnicianAI:
		return TechnicianGuidance, true
	}
	return 0, false
}

// MaxDocumentRunes bounds the document text embedded in a DocumentAnalysis prompt.
const MaxDocumentRunes = 12000

type Input struct {
	Intake   intake.ClinicalIntake
	Question string
	// History holds prior turns of a clinical session, already windowed.
	History []openai.Turn
	// Text is the educational question or the document body.
	Text string
	// Persona is required for DocumentAnalysis; other workflows pick their own.
	Persona agents.Persona
	// Step names the workflow step a DocumentAnalysis prompt serves.
	Step string
}

type Prompt struct {
	System         string
	User           string
	OutputContract agents.OutputContract
	Topic          topic.Topic
}

// JSON reports whether the prompt expects a JSON object back.
func (p Prompt) JSON() bool { return p.OutputContract != agents.FreeText }

func Build(w Workflow, in Input) (Prompt, error) {
	switch w {
	case ClinicalInitial:
		return clinicalInitial(in)
	case ClinicalFollowUp:
		return clinicalFollowUp(in)
	case Educational:
		return educational(agents.ProfessorAI.Persona(), in)
	case CaseStudy:
		return educational(agents.CaseStudyAI.Persona(), in)
	case Emergency:
		return educational(agents.EmergencyAI.Persona(), in)
	case TechnicianGuidance:
		return educational(agents.SeniorTechnicianAI.Persona(), in)
	case DocumentAnalysis:
		return documentAnalysis(in)
	}
	return Prompt{}, fmt.Errorf("%w: unknown workflow %s", ErrInvalidInput, w)
}

func invalid(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
}

func clinicalInitial(in Input) (Prompt, error) {
	if strings.TrimSpace(in.Intake.PresentingProblems.MainComplaint) == "" {
		return Prompt{}, invalid("presentingProblems.mainComplaint")
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		question = in.Intake.PresentingProblems.MainComplaint
	}

	var b strings.Builder
	b.WriteString("Please provide a comprehensive assessment based on the following information.\n\n")
	writeIntake(&b, in.Intake)
	b.WriteString("\nQUESTION:\n" + question + "\n\n")
	b.WriteString(AssessmentContract)

	doctor := agents.SeniorDoctorAI.Persona()
	return Prompt{
		System:         doctor.Instructions + " Provide detailed, structured responses following the specified JSON format.",
		User:           b.String(),
		OutputContract: agents.AssessmentJSON,
		Topic:          topic.Extract(in.Intake.PatientInfo.Species + " " + question),
	}, nil
}

func clinicalFollowUp(in Input) (Prompt, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return Prompt{}, invalid("question")
	}

	var b strings.Builder
	b.WriteString("This is a follow-up question about an ongoing case.\n\n")
	writeIntake(&b, in.Intake)
	if len(in.History) > 0 {
		b.WriteString("\nPREVIOUS CONVERSATION HISTORY:\n")
		for _, t := range in.History {
			b.WriteString("Q: " + t.Question + "\n")
			b.WriteString("A: " + t.Answer + "\n\n")
		}
	}
	b.WriteString("\nFOLLOW-UP QUESTION:\n" + question + "\n\n")
	b.WriteString(AssessmentContract)

	doctor := agents.SeniorDoctorAI.Persona()
	return Prompt{
		System:         doctor.Instructions + " Use the previous conversation as context and answer the new question.",
		User:           b.String(),
		OutputContract: agents.AssessmentJSON,
		Topic:          topic.Extract(in.Intake.PatientInfo.Species + " " + question),
	}, nil
}

func educational(p agents.Persona, in Input) (Prompt, error) {
	text := topic.Sanitize(in.Text)
	if text == "" {
		return Prompt{}, invalid("prompt")
	}
	t := topic.Extract(text)
	system := fmt.Sprintf("%s\n\nThe question is about %s in %s. Answer ONLY about %s in %s. "+
		"If the question drifts to another species or condition, say so briefly and return to the topic.",
		p.Instructions, t.Condition, t.Species, t.Condition, t.Species)
	return Prompt{
		System:         system,
		User:           text,
		OutputContract: agents.FreeText,
		Topic:          t,
	}, nil
}

func documentAnalysis(in Input) (Prompt, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Prompt{}, invalid("document text")
	}
	if in.Persona.Kind == 0 {
		return Prompt{}, invalid("persona")
	}
	if r := []rune(text); len(r) > MaxDocumentRunes {
		text = string(r[:MaxDocumentRunes])
	}
	step := in.Step
	if step == "" {
		step = in.Persona.Key()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow step: %s\n\n", step)
	b.WriteString("DOCUMENT:\n" + text + "\n\n")
	b.WriteString("Respond with a single JSON object containing your findings for this step.")
	return Prompt{
		System:         in.Persona.Instructions,
		User:           b.String(),
		OutputContract: agents.ObjectJSON,
		Topic:          topic.Extract(text),
	}, nil
}

func writeIntake(b *strings.Builder, c intake.ClinicalIntake) {
	p := c.PatientInfo
	b.WriteString("PATIENT INFORMATION:\n")
	line(b, "Name", p.Name, "")
	line(b, "Species", p.Species, "")
	line(b, "Breed", p.Breed, "Not specified")
	line(b, "Age", p.Age, "")
	line(b, "Weight", p.Weight, "Not specified")
	line(b, "Sex", p.Sex, "Not specified")
	line(b, "Reproductive Status", p.ReproductiveStatus, "Not specified")
	line(b, "Vaccination Status", p.VaccinationStatus, "Not specified")
	line(b, "Previous Conditions", p.PreviousConditions, "None recorded")
	line(b, "Current Medications", p.CurrentMedications, "None recorded")
	line(b, "Temperature", c.Vitals.Temperature, "Not recorded")
	line(b, "Heart Rate", c.Vitals.HeartRate, "Not recorded")
	line(b, "Respiratory Rate", c.Vitals.RespiratoryRate, "Not recorded")

	e := c.ClinicalExam
	b.WriteString("\nCLINICAL EXAMINATION:\n")
	line(b, "General Appearance", e.GeneralAppearance, "Not recorded")
	line(b, "Hydration Status", e.HydrationStatus, "Not recorded")
	line(b, "Mucous Membranes", e.MucousMembrane, "Not recorded")
	line(b, "Lymph Nodes", e.LymphNodes, "Not recorded")
	line(b, "Auscultation", e.Auscultation, "Not recorded")
	line(b, "Abdominal Palpation", e.AbdominalPalpation, "Not recorded")
	line(b, "Pain Score", e.PainScore, "Not recorded")
	line(b, "Other Findings", e.OtherFindings, "None recorded")

	pp := c.PresentingProblems
	b.WriteString("\nPRESENTING COMPLAINTS:\n")
	line(b, "Main Complaint", pp.MainComplaint, "")
	line(b, "Duration", pp.Duration, "Not specified")
	line(b, "Progression", pp.Progression, "Not specified")
	line(b, "Previous Treatments", pp.PreviousTreatments, "None recorded")
	line(b, "Diet Changes", pp.DietChanges, "None recorded")
	line(b, "Environment Changes", pp.EnvironmentChanges, "None recorded")
}

func line(b *strings.Builder, label, value, def string) {
	v := strings.TrimSpace(value)
	if v == "" {
		v = def
	}
	fmt.Fprintf(b, "- %s: %s\n", label, v)
}

// AssessmentContract is appended to clinical prompts.
const AssessmentContract = `Format your response as a JSON object with exactly this structure:
{
  "assessment": "string",
  "clinicalFindings": [{"system": "string", "observation": "string", "details": "string"}],
  "provisionalDiagnosis": [{"condition": "string", "likelihood": "string", "reasoning": "string"}],
  "diagnosticTests": [{"name": "string", "rationale": "string", "priority": "string"}],
  "treatmentPlan": {
    "medications": [{"name": "string", "dosage": "string", "frequency": "string", "duration": "string"}],
    "procedures": ["string"],
    "nursing": ["string"],
    "dietary": "string"
  },
  "followUp": {"timing": "string", "monitoring": ["string"], "warningSignals": ["string"]}
}`
