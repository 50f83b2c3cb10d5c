package assessment

import (
	"fmt"
	"strings"
)

const emptyFormatted = "No structured response available."

// Format renders r as the plain-text report shown in the dashboard.
func Format(r Response) string {
	var b strings.Builder

	if a := strings.TrimSpace(r.Assessment); a != "" {
		heading(&b, "ASSESSMENT")
		b.WriteString(a + "\n\n")
	}

	if len(r.ClinicalFindings) > 0 {
		heading(&b, "CLINICAL FINDINGS")
		for i, f := range r.ClinicalFindings {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f.System, f.Observation)
			if f.Details != "" {
				fmt.Fprintf(&b, "   Details: %s\n", f.Details)
			}
			b.WriteString("\n")
		}
	}

	if len(r.ProvisionalDiagnosis) > 0 {
		heading(&b, "PROVISIONAL DIAGNOSIS")
		for i, d := range r.ProvisionalDiagnosis {
			fmt.Fprintf(&b, "%d. %s\n", i+1, d.Condition)
			if d.Likelihood != "" {
				fmt.Fprintf(&b, "   Likelihood: %s\n", d.Likelihood)
			}
			if d.Reasoning != "" {
				fmt.Fprintf(&b, "   Reasoning: %s\n", d.Reasoning)
			}
			b.WriteString("\n")
		}
	}

	if len(r.DiagnosticTests) > 0 {
		heading(&b, "FURTHER DIAGNOSTIC TESTS")
		for i, t := range r.DiagnosticTests {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.Name)
			if t.Rationale != "" {
				fmt.Fprintf(&b, "   Rationale: %s\n", t.Rationale)
			}
			if t.Priority != "" {
				fmt.Fprintf(&b, "   Priority: %s\n", t.Priority)
			}
			b.WriteString("\n")
		}
	}

	if tp := r.TreatmentPlan; !tp.isEmpty() {
		heading(&b, "TREATMENT PLAN")
		if len(tp.Medications) > 0 {
			b.WriteString("Medications:\n")
			for _, m := range tp.Medications {
				fmt.Fprintf(&b, "- %s: %s\n", m.Name, m.Dosage)
				if m.Frequency != "" {
					fmt.Fprintf(&b, "  Frequency: %s\n", m.Frequency)
				}
				if m.Duration != "" {
					fmt.Fprintf(&b, "  Duration: %s\n", m.Duration)
				}
			}
			b.WriteString("\n")
		}
		bullets(&b, "Procedures:", tp.Procedures)
		bullets(&b, "Nursing Care:", tp.Nursing)
		if tp.Dietary != "" {
			b.WriteString("Dietary Recommendations:\n" + tp.Dietary + "\n\n")
		}
	}

	if fu := r.FollowUp; !fu.isEmpty() {
		heading(&b, "FOLLOW-UP")
		if fu.Timing != "" {
			fmt.Fprintf(&b, "Next Visit: %s\n", fu.Timing)
		}
		bullets(&b, "Monitoring Parameters:", fu.Monitoring)
		bullets(&b, "Warning Signs to Watch For:", fu.WarningSignals)
	}

	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return emptyFormatted
	}
	return out
}

func heading(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", len(title)) + "\n")
}

func bullets(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(label + "\n")
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
}
