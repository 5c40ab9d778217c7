package diagnosis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/PulseNet/internal/intake"
)

func ashaRecord() intake.PatientRecord {
	return intake.PatientRecord{
		Name:   "Asha",
		Age:    "34",
		Gender: "Female",
		Weight: "58",
		Vitals: intake.Vitals{
			Temperature:   "101",
			BloodPressure: "118/76",
			Pulse:         "88",
		},
		Symptoms: "fever, cough",
	}
}

var doctor = Identity{DoctorID: "doc-1", DoctorEmail: "doc@clinic.test"}

func TestNormalizeBuildsRequest(t *testing.T) {
	req, err := Normalize(ashaRecord(), doctor, "en")
	require.NoError(t, err)

	assert.Equal(t, Request{
		Language: "en",
		Patient:  Patient{Name: "Asha", Age: 34, Gender: "female", Weight: 58},
		Vitals: Vitals{
			Temperature: 101,
			BP:          BloodPressure{Systolic: 118, Diastolic: 76},
			Pulse:       88,
		},
		Symptoms:    "fever, cough",
		DoctorID:    "doc-1",
		DoctorEmail: "doc@clinic.test",
	}, req)
}

func TestNormalizeBloodPressure(t *testing.T) {
	tests := []struct {
		name string
		bp   string
		want BloodPressure
		ok   bool
	}{
		{"standard", "120/80", BloodPressure{120, 80}, true},
		{"spaces", " 120 / 80 ", BloodPressure{120, 80}, true},
		{"no slash", "120", BloodPressure{}, false},
		{"empty", "", BloodPressure{}, false},
		{"two slashes", "120/80/60", BloodPressure{}, false},
		{"decimal", "120.5/80", BloodPressure{}, false},
		{"missing diastolic", "120/", BloodPressure{}, false},
		{"letters", "abc/def", BloodPressure{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ashaRecord()
			rec.Vitals.BloodPressure = intake.Field(tt.bp)

			req, err := Normalize(rec, doctor, "en")
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.want, req.Vitals.BP)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, KindMalformedVitals, verr.Kind)
			assert.Equal(t, Request{}, req)
		})
	}
}

func TestNormalizeGender(t *testing.T) {
	tests := map[string]string{
		"":       "other",
		"Female": "female",
		"Male":   "male",
		"Other":  "other",
		"  ":     "other",
	}
	for in, want := range tests {
		rec := ashaRecord()
		rec.Gender = in
		req, err := Normalize(rec, doctor, "en")
		require.NoError(t, err)
		assert.Equal(t, want, req.Patient.Gender, "gender %q", in)
	}
}

func TestNormalizeRequiresNameAndSymptoms(t *testing.T) {
	rec := ashaRecord()
	rec.Symptoms = "  "
	_, err := Normalize(rec, doctor, "en")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMissingRequired, verr.Kind)
	assert.Equal(t, "symptoms", verr.Field)

	rec = ashaRecord()
	rec.Name = ""
	_, err = Normalize(rec, doctor, "en")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestNormalizeChecksBloodPressureFirst(t *testing.T) {
	rec := intake.PatientRecord{}
	_, err := Normalize(rec, doctor, "en")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMalformedVitals, verr.Kind)
}

func TestNormalizeIsLenientWithNumbers(t *testing.T) {
	rec := ashaRecord()
	rec.Age = "thirty"
	rec.Weight = ""
	req, err := Normalize(rec, doctor, "")
	require.NoError(t, err)

	assert.False(t, req.Patient.Age.Valid())
	assert.Equal(t, Number(0), req.Patient.Weight)
	assert.Equal(t, "en", req.Language)

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	patient := decoded["patient"].(map[string]any)
	assert.Nil(t, patient["age"])
	assert.Equal(t, 0.0, patient["weight"])
}

func TestRequestWireShape(t *testing.T) {
	req, err := Normalize(ashaRecord(), doctor, "hi")
	require.NoError(t, err)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"language": "hi",
		"patient": {"name": "Asha", "age": 34, "gender": "female", "weight": 58},
		"vitals": {"temperature": 101, "bp": {"systolic": 118, "diastolic": 76}, "pulse": 88},
		"symptoms": "fever, cough",
		"doctorId": "doc-1",
		"doctorEmail": "doc@clinic.test"
	}`, string(body))
}

func TestResultDecodingIsLenient(t *testing.T) {
	body := `{
		"ageCategory": "Adult",
		"diagnosis": "Influenza",
		"confidence": "85%",
		"referralNeeded": false,
		"treatments": ["Rest and fluids", {"medication": "Paracetamol", "dosage": "500mg", "route": "oral"}],
		"drugInteractions": [{"substances": "A + B", "riskLevel": "HIGH"}, {"substances": "C + D", "riskLevel": "moderate"}],
		"clinicalNotes": "Monitor temperature."
	}`

	var res Result
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, Confidence(85), res.Confidence)
	require.Len(t, res.Treatments, 2)
	assert.Equal(t, "Rest and fluids", res.Treatments[0].Medication)
	assert.Equal(t, "oral", res.Treatments[1].Route)
	assert.Equal(t, RiskHigh, res.DrugInteractions[0].RiskLevel)
	assert.Equal(t, RiskMedium, res.DrugInteractions[1].RiskLevel)

	var numeric Result
	require.NoError(t, json.Unmarshal([]byte(`{"confidence": 72.5}`), &numeric))
	assert.Equal(t, Confidence(72.5), numeric.Confidence)

	var garbage Result
	require.NoError(t, json.Unmarshal([]byte(`{"confidence": "high"}`), &garbage))
	assert.Equal(t, Confidence(0), garbage.Confidence)
}

func TestConfidencePercentClamps(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(-5).Percent())
	assert.Equal(t, 100.0, Confidence(140).Percent())
	assert.Equal(t, 64.0, Confidence(64).Percent())
}
