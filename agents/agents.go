package agents

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAgent    = errors.New("unknown agent type")
	ErrAgentNotAllowed = errors.New("agent type not allowed here")
)

// Kind is the closed set of agent personas the backend can dispatch to.
type Kind int

const (
	ProfessorAI Kind = iota + 1
	CaseStudyAI
	EmergencyAI
	SeniorDoctorAI
	SeniorTechnicianAI
	DataProcessor
	HistoryAnalyzer
	WebResearcher
)

// All lists every kind in declaration order.
var All = []Kind{ProfessorAI, CaseStudyAI, EmergencyAI, SeniorDoctorAI, SeniorTechnicianAI, DataProcessor, HistoryAnalyzer, WebResearcher}

func (k Kind) String() string {
	switch k {
	case ProfessorAI:
		return "professor_ai"
	case CaseStudyAI:
		return "case_study_ai"
	case EmergencyAI:
		return "emergency_ai"
	case SeniorDoctorAI:
		return "senior_doctor_ai"
	case SeniorTechnicianAI:
		return "senior_technician_ai"
	case DataProcessor:
		return "data_processor"
	case HistoryAnalyzer:
		return "history_analyzer"
	case WebResearcher:
		return "web_researcher"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parse maps a wire token to its Kind.
func Parse(token string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "professor_ai":
		return ProfessorAI, nil
	case "case_study_ai":
		return CaseStudyAI, nil
	case "emergency_ai":
		return EmergencyAI, nil
	case "senior_doctor_ai":
		return SeniorDoctorAI, nil
	case "senior_technician_ai":
		return SeniorTechnicianAI, nil
	case "data_processor":
		return DataProcessor, nil
	case "history_analyzer":
		return HistoryAnalyzer, nil
	case "web_researcher":
		return WebResearcher, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAgent, token)
}

// Surface is a set of kinds a route is permitted to select.
type Surface struct {
	name  string
	kinds []Kind
}

var (
	SurfaceEducational = Surface{name: "educational", kinds: []Kind{ProfessorAI, CaseStudyAI, EmergencyAI}}
	SurfaceTechnician  = Surface{name: "technician", kinds: []Kind{ProfessorAI, CaseStudyAI, EmergencyAI, SeniorTechnicianAI}}
	SurfaceInternal    = Surface{name: "internal", kinds: []Kind{SeniorDoctorAI, SeniorTechnicianAI, DataProcessor, HistoryAnalyzer, WebResearcher}}
)

func (s Surface) String() string { return s.name }

// Allows reports whether k may be selected through s.
func (s Surface) Allows(k Kind) bool {
	for _, a := range s.kinds {
		if a == k {
			return true
		}
	}
	return false
}

// Resolve returns the persona for a token, regardless of surface.
func Resolve(token string) (Persona, error) {
	k, err := Parse(token)
	if err != nil {
		return Persona{}, err
	}
	return k.Persona(), nil
}

// ResolveFor resolves a token and checks it against the surface's allow-list.
func ResolveFor(s Surface, token string) (Persona, error) {
	k, err := Parse(token)
	if err != nil {
		return Persona{}, err
	}
	if !s.Allows(k) {
		return Persona{}, fmt.Errorf("%w: %s on %s surface", ErrAgentNotAllowed, k, s)
	}
	return k.Persona(), nil
}
