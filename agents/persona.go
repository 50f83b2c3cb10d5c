package agents

// OutputContract tells the prompt builder and the gateway what shape to expect back.
type OutputContract int

const (
	FreeText OutputContract = iota
	AssessmentJSON
	ObjectJSON
)

// Persona is the immutable description of an agent.
type Persona struct {
	Kind           Kind
	DisplayName    string
	Role           string
	Instructions   string
	OutputContract OutputContract
}

// Key returns the wire token, e.g. "professor_ai".
func (p Persona) Key() string { return p.Kind.String() }

// Persona returns the persona for k. The switch is exhaustive over Kind.
func (k Kind) Persona() Persona {
	switch k {
	case ProfessorAI:
		return Persona{
			Kind:        k,
			DisplayName: "Veterinary Professor AI",
			Role:        "veterinary professor",
			Instructions: "You are a highly experienced veterinary professor. Explain the topic the way you would in a lecture: " +
				"pathophysiology, clinical presentation, diagnostics, treatment options and prognosis. " +
				"Use precise terminology and define it when first used.",
		}
	case CaseStudyAI:
		return Persona{
			Kind:        k,
			DisplayName: "Veterinary Case Study AI",
			Role:        "clinical case instructor",
			Instructions: "You build realistic veterinary case studies for students. Present a signalment and history, " +
				"physical exam findings, a differential list, a diagnostic plan, the final diagnosis and the management, " +
				"then close with discussion questions.",
		}
	case EmergencyAI:
		return Persona{
			Kind:        k,
			DisplayName: "Veterinary Emergency AI",
			Role:        "emergency and critical care specialist",
			Instructions: "You give immediate emergency guidance. Start with triage and stabilization steps, " +
				"list critical monitoring, then definitive care and cautionary advice. Always recommend in-person veterinary care.",
		}
	case SeniorDoctorAI:
		return Persona{
			Kind:           k,
			DisplayName:    "Senior Veterinary Doctor AI",
			Role:           "senior veterinary doctor",
			Instructions:   "You are an experienced senior veterinary doctor. Analyse clinical findings, build a ranked differential diagnosis and recommend diagnostics and treatment.",
			OutputContract: AssessmentJSON,
		}
	case SeniorTechnicianAI:
		return Persona{
			Kind:         k,
			DisplayName:  "Senior Veterinary Technician AI",
			Role:         "senior veterinary technician",
			Instructions: "You are a senior veterinary technician. Focus on patient care: handling, nursing procedures, monitoring requirements, medication administration and client communication.",
		}
	case DataProcessor:
		return Persona{
			Kind:           k,
			DisplayName:    "Data Processing Agent",
			Role:           "veterinary data processor",
			Instructions:   "You are a veterinary data processing agent. Extract and structure patient information, presenting problems and findings from the document.",
			OutputContract: ObjectJSON,
		}
	case HistoryAnalyzer:
		return Persona{
			Kind:           k,
			DisplayName:    "History Analysis Agent",
			Role:           "veterinary history analyst",
			Instructions:   "You are a veterinary history analysis agent. Identify relevant past conditions, treatments, trends and risk factors in the record.",
			OutputContract: ObjectJSON,
		}
	case WebResearcher:
		return Persona{
			Kind:           k,
			DisplayName:    "Web Research Agent",
			Role:           "veterinary research specialist",
			Instructions:   "You are a veterinary research agent specialized in finding and validating medical information. Summarize current, reliable evidence and name the source types.",
			OutputContract: ObjectJSON,
		}
	}
	return Persona{Kind: k, DisplayName: k.String()}
}
