package assessment

// Response is the structured clinical answer persisted with every interaction.
// Every field is always present; collections are empty, never null.
type Response struct {
	Assessment           string           `json:"assessment"`
	ClinicalFindings     []Finding        `json:"clinicalFindings"`
	ProvisionalDiagnosis []Diagnosis      `json:"provisionalDiagnosis"`
	DiagnosticTests      []DiagnosticTest `json:"diagnosticTests"`
	TreatmentPlan        TreatmentPlan    `json:"treatmentPlan"`
	FollowUp             FollowUp         `json:"followUp"`
}

type Finding struct {
	System      string `json:"system"`
	Observation string `json:"observation"`
	Details     string `json:"details"`
}

type Diagnosis struct {
	Condition  string `json:"condition"`
	Likelihood string `json:"likelihood"`
	Reasoning  string `json:"reasoning"`
}

type DiagnosticTest struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
	Priority  string `json:"priority"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

type TreatmentPlan struct {
	Medications []Medication `json:"medications"`
	Procedures  []string     `json:"procedures"`
	Nursing     []string     `json:"nursing"`
	Dietary     string       `json:"dietary"`
}

type FollowUp struct {
	Timing         string   `json:"timing"`
	Monitoring     []string `json:"monitoring"`
	WarningSignals []string `json:"warningSignals"`
}

// Default returns the empty skeleton.
func Default() Response {
	return Response{
		ClinicalFindings:     []Finding{},
		ProvisionalDiagnosis: []Diagnosis{},
		DiagnosticTests:      []DiagnosticTest{},
		TreatmentPlan: TreatmentPlan{
			Medications: []Medication{},
			Procedures:  []string{},
			Nursing:     []string{},
		},
		FollowUp: FollowUp{
			Monitoring:     []string{},
			WarningSignals: []string{},
		},
	}
}

func (t TreatmentPlan) isEmpty() bool {
	return len(t.Medications) == 0 && len(t.Procedures) == 0 && len(t.Nursing) == 0 && t.Dietary == ""
}

func (f FollowUp) isEmpty() bool {
	return f.Timing == "" && len(f.Monitoring) == 0 && len(f.WarningSignals) == 0
}

// ensureSlices replaces nil collections so a literal null never reaches clients.
func (r *Response) ensureSlices() {
	if r.ClinicalFindings == nil {
		r.ClinicalFindings = []Finding{}
	}
	if r.ProvisionalDiagnosis == nil {
		r.ProvisionalDiagnosis = []Diagnosis{}
	}
	if r.DiagnosticTests == nil {
		r.DiagnosticTests = []DiagnosticTest{}
	}
	if r.TreatmentPlan.Medications == nil {
		r.TreatmentPlan.Medications = []Medication{}
	}
	if r.TreatmentPlan.Procedures == nil {
		r.TreatmentPlan.Procedures = []string{}
	}
	if r.TreatmentPlan.Nursing == nil {
		r.TreatmentPlan.Nursing = []string{}
	}
	if r.FollowUp.Monitoring == nil {
		r.FollowUp.Monitoring = []string{}
	}
	if r.FollowUp.WarningSignals == nil {
		r.FollowUp.WarningSignals = []string{}
	}
}
