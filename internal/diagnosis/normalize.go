package diagnosis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Skufu/PulseNet/internal/intake"
)

type Kind int

const (
	KindMalformedVitals Kind = iota + 1
	KindMissingRequired
)

func (k Kind) String() string {
	switch k {
	case KindMalformedVitals:
		return "malformed_vitals"
	case KindMissingRequired:
		return "missing_required"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ValidationError is raised before any network call. Message is meant for
// the user.
type ValidationError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ValidationError) UserMessage() string { return e.Message }

const (
	msgBloodPressure = "Please enter Blood Pressure in '120/80' format"
	msgRequired      = "Patient name and symptoms are required"
)

// ParseBloodPressure reads "sys/dia". Both sides must be integers.
func ParseBloodPressure(raw string) (BloodPressure, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Count(s, "/") != 1 {
		return BloodPressure{}, &ValidationError{Kind: KindMalformedVitals, Field: "bp", Message: msgBloodPressure}
	}
	sysText, diaText, _ := strings.Cut(s, "/")
	sys, err := strconv.Atoi(strings.TrimSpace(sysText))
	if err != nil {
		return BloodPressure{}, &ValidationError{Kind: KindMalformedVitals, Field: "bp", Message: msgBloodPressure}
	}
	dia, err := strconv.Atoi(strings.TrimSpace(diaText))
	if err != nil {
		return BloodPressure{}, &ValidationError{Kind: KindMalformedVitals, Field: "bp", Message: msgBloodPressure}
	}
	return BloodPressure{Systolic: sys, Diastolic: dia}, nil
}

// Normalize turns an intake record into the /analyze request body. Numbers
// are coerced leniently; the backend has the final say on their values.
func Normalize(rec intake.PatientRecord, id Identity, lang string) (Request, error) {
	bp, err := ParseBloodPressure(rec.Vitals.BloodPressure.Raw())
	if err != nil {
		return Request{}, err
	}
	if !rec.Ready() {
		field := "name"
		if strings.TrimSpace(rec.Name) != "" {
			field = "symptoms"
		}
		return Request{}, &ValidationError{Kind: KindMissingRequired, Field: field, Message: msgRequired}
	}

	gender := strings.ToLower(strings.TrimSpace(rec.Gender))
	if gender == "" {
		gender = "other"
	}
	if lang == "" {
		lang = intake.DefaultLanguage
	}

	return Request{
		Language: lang,
		Patient: Patient{
			Name:   rec.Name,
			Age:    Number(rec.Age.Number()),
			Gender: gender,
			Weight: Number(rec.Weight.Number()),
		},
		Vitals: Vitals{
			Temperature: Number(rec.Vitals.Temperature.Number()),
			BP:          bp,
			Pulse:       Number(rec.Vitals.Pulse.Number()),
		},
		Symptoms:    rec.Symptoms,
		DoctorID:    id.DoctorID,
		DoctorEmail: id.DoctorEmail,
	}, nil
}
