package render

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Skufu/PulseNet/internal/diagnosis"
)

// riskWeight orders interaction warnings; unknown levels sort last.
var riskWeight = map[diagnosis.RiskLevel]int{
	diagnosis.RiskHigh:   40,
	diagnosis.RiskMedium: 20,
	diagnosis.RiskLow:    10,
}

type InteractionView struct {
	Substances  string
	Risk        string
	RiskClass   string
	Explanation string
	Advice      string
}

type TreatmentView struct {
	Step      int
	Title     string
	Details   []string
	Rationale string
}

// ResultView is what the result panel shows for one diagnosis.
type ResultView struct {
	Diagnosis       string
	Confidence      float64
	ConfidenceLabel string
	AgeCategory     string
	ClinicalNotes   string

	ShowReferral bool
	Treatments   []TreatmentView

	Interactions   []InteractionView
	HighestRisk    string
	NoInteractions bool
}

// NewResultView projects res for display. res is not modified.
func NewResultView(res *diagnosis.Result) ResultView {
	if res == nil {
		return ResultView{NoInteractions: true}
	}

	pct := res.Confidence.Percent()
	v := ResultView{
		Diagnosis:       res.Diagnosis,
		Confidence:      pct,
		ConfidenceLabel: formatPercent(pct),
		AgeCategory:     strings.TrimSpace(res.AgeCategory),
		ClinicalNotes:   strings.TrimSpace(res.ClinicalNotes),
		ShowReferral:    res.ReferralNeeded,
	}

	for i, t := range res.Treatments {
		v.Treatments = append(v.Treatments, treatmentView(i+1, t))
	}

	v.Interactions, v.HighestRisk = interactionViews(res.DrugInteractions)
	v.NoInteractions = len(v.Interactions) == 0
	return v
}

func treatmentView(step int, t diagnosis.Treatment) TreatmentView {
	tv := TreatmentView{Step: step, Title: t.Medication, Rationale: t.AgeSpecificRationale}
	for _, d := range []string{t.Dosage, t.Route, t.Frequency, t.Duration} {
		if d = strings.TrimSpace(d); d != "" {
			tv.Details = append(tv.Details, d)
		}
	}
	return tv
}

func interactionViews(in []diagnosis.Interaction) ([]InteractionView, string) {
	if len(in) == 0 {
		return nil, ""
	}
	sorted := append([]diagnosis.Interaction(nil), in...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return riskWeight[sorted[i].RiskLevel] > riskWeight[sorted[j].RiskLevel]
	})

	out := make([]InteractionView, 0, len(sorted))
	for _, it := range sorted {
		out = append(out, InteractionView{
			Substances:  it.Substances,
			Risk:        string(it.RiskLevel),
			RiskClass:   riskClass(it.RiskLevel),
			Explanation: it.ClinicalExplanation,
			Advice:      it.Recommendation,
		})
	}

	highest := ""
	if riskWeight[sorted[0].RiskLevel] > 0 {
		highest = string(sorted[0].RiskLevel)
	}
	return out, highest
}

func riskClass(r diagnosis.RiskLevel) string {
	switch r {
	case diagnosis.RiskHigh:
		return "risk-high"
	case diagnosis.RiskMedium:
		return "risk-medium"
	case diagnosis.RiskLow:
		return "risk-low"
	}
	return "risk-unknown"
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// HistoryCard is one entry of the doctor's diagnostic history.
type HistoryCard struct {
	ID         string
	Initial    string
	Patient    string
	Date       string
	Diagnosis  string
	Confidence string
}

// HistoryCards builds cards for records, skipping those missing the patient
// or the diagnosis.
func HistoryCards(records []diagnosis.HistoryRecord) []HistoryCard {
	cards := make([]HistoryCard, 0, len(records))
	for _, rec := range records {
		if rec.PatientInfo == nil || rec.PatientInfo.Patient == nil || rec.DiagnosisResult == nil {
			continue
		}
		name := strings.TrimSpace(rec.PatientInfo.Patient.Name)
		initial := "?"
		if r := []rune(name); len(r) > 0 {
			initial = strings.ToUpper(string(r[0]))
		}
		cards = append(cards, HistoryCard{
			ID:         rec.ID,
			Initial:    initial,
			Patient:    name,
			Date:       formatDate(rec.Timestamp),
			Diagnosis:  rec.DiagnosisResult.Diagnosis,
			Confidence: formatPercent(rec.DiagnosisResult.Confidence.Percent()),
		})
	}
	return cards
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func formatDate(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "N/A"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Format("02 Jan 2006")
		}
	}
	return ts
}
