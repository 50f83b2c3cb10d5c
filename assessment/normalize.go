package assessment

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
)

var (
	jsonRe  = regexp.MustCompile(`(?s)\{.*\}`)
	fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// extractJSON returns the outermost {...} block of s, or "" when there is none.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	return jsonRe.FindString(s)
}

// looseString accepts any JSON scalar. Models send 0.7 where "0.7" is expected.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = looseString(x)
	case float64, bool:
		*s = looseString(strings.TrimSpace(string(b)))
	default:
		return fmt.Errorf("want text, got %T", v)
	}
	return nil
}

// looseList accepts a list of scalars or a single scalar.
type looseList []string

func (l *looseList) UnmarshalJSON(b []byte) error {
	var items []looseString
	if err := json.Unmarshal(b, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, string(it))
		}
		*l = out
		return nil
	}
	var one looseString
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*l = []string{}
	if one != "" {
		*l = []string{string(one)}
	}
	return nil
}

type wireFinding struct {
	System      looseString `json:"system"`
	Observation looseString `json:"observation"`
	Details     looseString `json:"details"`
}

type wireDiagnosis struct {
	Condition  looseString `json:"condition"`
	Likelihood looseString `json:"likelihood"`
	Reasoning  looseString `json:"reasoning"`
}

type wireTest struct {
	Name      looseString `json:"name"`
	Rationale looseString `json:"rationale"`
	Priority  looseString `json:"priority"`
}

type wireMedication struct {
	Name      looseString `json:"name"`
	Dosage    looseString `json:"dosage"`
	Frequency looseString `json:"frequency"`
	Duration  looseString `json:"duration"`
}

type wireTreatment struct {
	Medications []wireMedication `json:"medications"`
	Procedures  looseList        `json:"procedures"`
	Nursing     looseList        `json:"nursing"`
	Dietary     looseString      `json:"dietary"`
}

type wireFollowUp struct {
	Timing         looseString `json:"timing"`
	Monitoring     looseList   `json:"monitoring"`
	WarningSignals looseList   `json:"warningSignals"`
}

// fieldDecoders apply one top-level key each, so a bad key never costs the others.
// "initialAssessment" is the legacy name of "assessment" and only fills it when empty.
var fieldDecoders = []struct {
	key   string
	apply func(b []byte, r *Response) error
}{
	{"assessment", func(b []byte, r *Response) error {
		var s looseString
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		r.Assessment = string(s)
		return nil
	}},
	{"initialAssessment", func(b []byte, r *Response) error {
		var s looseString
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if r.Assessment == "" {
			r.Assessment = string(s)
		}
		return nil
	}},
	{"clinicalFindings", func(b []byte, r *Response) error {
		var in []wireFinding
		if err := json.Unmarshal(b, &in); err != nil {
			return err
		}
		r.ClinicalFindings = make([]Finding, 0, len(in))
		for _, f := range in {
			r.ClinicalFindings = append(r.ClinicalFindings, Finding{System: string(f.System), Observation: string(f.Observation), Details: string(f.Details)})
		}
		return nil
	}},
	{"provisionalDiagnosis", func(b []byte, r *Response) error {
		var in []wireDiagnosis
		if err := json.Unmarshal(b, &in); err != nil {
			return err
		}
		r.ProvisionalDiagnosis = make([]Diagnosis, 0, len(in))
		for _, d := range in {
			r.ProvisionalDiagnosis = append(r.ProvisionalDiagnosis, Diagnosis{Condition: string(d.Condition), Likelihood: string(d.Likelihood), Reasoning: string(d.Reasoning)})
		}
		return nil
	}},
	{"diagnosticTests", func(b []byte, r *Response) error {
		var in []wireTest
		if err := json.Unmarshal(b, &in); err != nil {
			return err
		}
		r.DiagnosticTests = make([]DiagnosticTest, 0, len(in))
		for _, t := range in {
			r.DiagnosticTests = append(r.DiagnosticTests, DiagnosticTest{Name: string(t.Name), Rationale: string(t.Rationale), Priority: string(t.Priority)})
		}
		return nil
	}},
	{"treatmentPlan", func(b []byte, r *Response) error {
		var in wireTreatment
		if err := json.Unmarshal(b, &in); err != nil {
			return err
		}
		meds := make([]Medication, 0, len(in.Medications))
		for _, m := range in.Medications {
			meds = append(meds, Medication{Name: string(m.Name), Dosage: string(m.Dosage), Frequency: string(m.Frequency), Duration: string(m.Duration)})
		}
		r.TreatmentPlan = TreatmentPlan{Medications: meds, Procedures: in.Procedures, Nursing: in.Nursing, Dietary: string(in.Dietary)}
		return nil
	}},
	{"followUp", func(b []byte, r *Response) error {
		var in wireFollowUp
		if err := json.Unmarshal(b, &in); err != nil {
			return err
		}
		r.FollowUp = FollowUp{Timing: string(in.Timing), Monitoring: in.Monitoring, WarningSignals: in.WarningSignals}
		return nil
	}},
}

// Normalize turns raw model output into a Response. Each known key is merged onto the
// skeleton on its own; a key that cannot be decoded keeps its default and marks the
// result degraded. When no known key decodes, the skeleton comes back with the raw
// text as the assessment.
func Normalize(raw string) (Response, bool) {
	block := extractJSON(raw)
	if block == "" {
		return degraded(raw, "no_json")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return degraded(raw, "unmarshal: "+err.Error())
	}

	out := Default()
	decoded := 0
	var failed []string
	for _, d := range fieldDecoders {
		b, ok := fields[d.key]
		if !ok {
			continue
		}
		if err := d.apply(b, &out); err != nil {
			failed = append(failed, d.key+": "+err.Error())
			continue
		}
		decoded++
	}
	if decoded == 0 {
		if len(failed) == 0 {
			return degraded(raw, "no_known_keys")
		}
		return degraded(raw, strings.Join(failed, "; "))
	}
	out.ensureSlices()
	if len(failed) > 0 {
		log.Printf("[normalize][degraded] reason=partial fields=%q", failed)
		return out, true
	}
	return out, false
}

func degraded(raw, reason string) (Response, bool) {
	log.Printf("[normalize][degraded] reason=%s raw_len=%d", reason, len(raw))
	out := Default()
	out.Assessment = raw
	return out, true
}

// NormalizeObject is the schemaless variant used by workflow steps; unparseable text
// comes back as {"text": raw}.
func NormalizeObject(raw string) (map[string]any, bool) {
	block := extractJSON(raw)
	if block != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(block), &m); err == nil && m != nil {
			return m, false
		}
	}
	log.Printf("[normalize][degraded] reason=object raw_len=%d", len(raw))
	return map[string]any{"text": raw}, true
}
