package intake

import (
	"math"
	"strconv"
	"strings"
)

// Field is a free-text form value. Numeric inputs stay as typed until the
// request is built; Number parses them on demand.
type Field string

func (f Field) Raw() string { return string(f) }

func (f Field) Blank() bool { return strings.TrimSpace(string(f)) == "" }

// Number reads the field the way the form inputs are read: blank is zero and
// anything that does not parse is NaN.
func (f Field) Number() float64 {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

const (
	GenderUnset  = ""
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Genders lists the values offered by the intake form.
var Genders = []string{GenderMale, GenderFemale, GenderOther}

type Vitals struct {
	Temperature   Field `json:"temp"`
	BloodPressure Field `json:"bp"`
	Pulse         Field `json:"hr"`
	SpO2          Field `json:"spo2"`
}

// PatientRecord is the in-progress intake record.
type PatientRecord struct {
	Name     string `json:"name"`
	Age      Field  `json:"age"`
	Gender   string `json:"gender"`
	Weight   Field  `json:"weight"`
	Vitals   Vitals `json:"vitals"`
	Symptoms string `json:"symptoms"`
}

// Ready reports whether the record carries the fields a submission needs.
func (r PatientRecord) Ready() bool {
	return strings.TrimSpace(r.Name) != "" && strings.TrimSpace(r.Symptoms) != ""
}

// Draft is everything the store persists for one doctor.
type Draft struct {
	Language string        `json:"language"`
	Patient  PatientRecord `json:"currentPatient"`
}
