package agents

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	for _, k := range All {
		got, err := Parse(k.String())
		if err != nil {
			t.Fatalf("Parse(%s): %v", k, err)
		}
		if got != k {
			t.Fatalf("Parse(%s)=%v", k, got)
		}
		p := k.Persona()
		if p.Kind != k || p.DisplayName == "" || p.Instructions == "" {
			t.Fatalf("incomplete persona for %s: %+v", k, p)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	for _, tok := range []string{"", "surgeon_ai", "professor"} {
		if _, err := Parse(tok); !errors.Is(err, ErrUnknownAgent) {
			t.Fatalf("Parse(%q) err=%v", tok, err)
		}
	}
}

func TestResolveFor(t *testing.T) {
	cases := []struct {
		surface Surface
		token   string
		want    error
	}{
		{SurfaceEducational, "professor_ai", nil},
		{SurfaceEducational, "emergency_ai", nil},
		{SurfaceEducational, "senior_doctor_ai", ErrAgentNotAllowed},
		{SurfaceEducational, "senior_technician_ai", ErrAgentNotAllowed},
		{SurfaceTechnician, "senior_technician_ai", nil},
		{SurfaceInternal, "history_analyzer", nil},
		{SurfaceInternal, "case_study_ai", ErrAgentNotAllowed},
		{SurfaceEducational, "vet_bot", ErrUnknownAgent},
	}
	for _, tc := range cases {
		p, err := ResolveFor(tc.surface, tc.token)
		if tc.want == nil {
			if err != nil {
				t.Fatalf("%s/%s: %v", tc.surface, tc.token, err)
			}
			if p.Key() != tc.token {
				t.Fatalf("key=%s; want %s", p.Key(), tc.token)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s/%s: err=%v; want %v", tc.surface, tc.token, err, tc.want)
		}
	}
}

func TestResolveIgnoresSurface(t *testing.T) {
	p, err := Resolve("web_researcher")
	if err != nil {
		t.Fatal(err)
	}
	if p.OutputContract != ObjectJSON {
		t.Fatalf("contract=%v", p.OutputContract)
	}
}
