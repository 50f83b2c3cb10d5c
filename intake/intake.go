package intake

import "strings"

// ClinicalIntake is the structured form a clinician fills before the first question.
// It is stored with the session and never changes afterwards.
type ClinicalIntake struct {
	PatientInfo        PatientInfo        `json:"patientInfo"`
	Vitals             Vitals             `json:"vitals"`
	ClinicalExam       ClinicalExam       `json:"clinicalExam"`
	PresentingProblems PresentingProblems `json:"presentingProblems"`
}

type PatientInfo struct {
	Name               string `json:"name"`
	Species            string `json:"species"`
	Breed              string `json:"breed"`
	Age                string `json:"age"`
	Weight             string `json:"weight"`
	Sex                string `json:"sex"`
	ReproductiveStatus string `json:"reproductiveStatus"`
	VaccinationStatus  string `json:"vaccinationStatus"`
	PreviousConditions string `json:"previousConditions"`
	CurrentMedications string `json:"currentMedications"`
}

type Vitals struct {
	Temperature     string `json:"temperature"`
	HeartRate       string `json:"heartRate"`
	RespiratoryRate string `json:"respiratoryRate"`
}

type ClinicalExam struct {
	GeneralAppearance  string `json:"generalAppearance"`
	HydrationStatus    string `json:"hydrationStatus"`
	MucousMembrane     string `json:"mucousMembrane"`
	LymphNodes         string `json:"lymphNodes"`
	Auscultation       string `json:"auscultation"`
	AbdominalPalpation string `json:"abdominalPalpation"`
	PainScore          string `json:"painScore"`
	OtherFindings      string `json:"otherFindings"`
}

type PresentingProblems struct {
	MainComplaint      string `json:"mainComplaint"`
	Duration           string `json:"duration"`
	Progression        string `json:"progression"`
	PreviousTreatments string `json:"previousTreatments"`
	DietChanges        string `json:"dietChanges"`
	EnvironmentChanges string `json:"environmentChanges"`
}

// MissingRequired returns the JSON path of the first empty required field, or "".
func (c ClinicalIntake) MissingRequired() string {
	switch {
	case blank(c.PatientInfo.Name):
		return "patientInfo.name"
	case blank(c.PatientInfo.Species):
		return "patientInfo.species"
	case blank(c.PatientInfo.Age):
		return "patientInfo.age"
	case blank(c.PresentingProblems.MainComplaint):
		return "presentingProblems.mainComplaint"
	}
	return ""
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
