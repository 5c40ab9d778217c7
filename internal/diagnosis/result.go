package diagnosis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		*r = RiskLow
	case "medium", "moderate":
		*r = RiskMedium
	case "high", "severe":
		*r = RiskHigh
	default:
		*r = RiskLevel(strings.TrimSpace(s))
	}
	return nil
}

// Confidence is a 0..100 score. The model sometimes sends it as a string
// such as "85" or "85%"; anything unreadable decodes as zero.
type Confidence float64

func (c *Confidence) UnmarshalJSON(b []byte) error {
	*c = 0
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*c = Confidence(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*c = Confidence(f)
	}
	return nil
}

// Percent clamps the score to 0..100.
func (c Confidence) Percent() float64 {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return float64(c)
}

type Treatment struct {
	Medication           string `json:"medication"`
	Dosage               string `json:"dosage"`
	Route                string `json:"route"`
	Frequency            string `json:"frequency"`
	Duration             string `json:"duration"`
	AgeSpecificRationale string `json:"ageSpecificRationale"`
}

// UnmarshalJSON also accepts a bare string, which older backends send as a
// one-line step.
func (t *Treatment) UnmarshalJSON(b []byte) error {
	var line string
	if err := json.Unmarshal(b, &line); err == nil {
		*t = Treatment{Medication: line}
		return nil
	}
	type plain Treatment
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Treatment(p)
	return nil
}

type Interaction struct {
	Substances          string    `json:"substances"`
	RiskLevel           RiskLevel `json:"riskLevel"`
	ClinicalExplanation string    `json:"clinicalExplanation"`
	Recommendation      string    `json:"recommendation"`
}

// Result is the body returned by POST /analyze.
type Result struct {
	AgeCategory      string        `json:"ageCategory"`
	Diagnosis        string        `json:"diagnosis"`
	Confidence       Confidence    `json:"confidence"`
	ReferralNeeded   bool          `json:"referralNeeded"`
	Treatments       []Treatment   `json:"treatments"`
	DrugInteractions []Interaction `json:"drugInteractions"`
	ClinicalNotes    string        `json:"clinicalNotes"`
}

// PatientInfo is the stored copy of the request inside a history record.
type PatientInfo struct {
	Language string   `json:"language"`
	Patient  *Patient `json:"patient"`
	Vitals   *Vitals  `json:"vitals"`
	Symptoms string   `json:"symptoms"`
}

// HistoryRecord is one entry of GET /doctor/records. Nested parts may be
// missing on old or damaged records.
type HistoryRecord struct {
	ID              string       `json:"_id"`
	DoctorID        string       `json:"doctorId"`
	DoctorEmail     string       `json:"doctorEmail"`
	PatientInfo     *PatientInfo `json:"patient_info"`
	DiagnosisResult *Result      `json:"diagnosis_result"`
	Timestamp       string       `json:"timestamp"`
}
