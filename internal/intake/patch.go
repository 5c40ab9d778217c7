package intake

import "net/url"

// PatientPatch carries top-level record keys to merge. Nil fields are left
// untouched.
type PatientPatch struct {
	Name     *string
	Age      *Field
	Gender   *string
	Weight   *Field
	Symptoms *string
}

func (p PatientPatch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Gender == nil && p.Weight == nil && p.Symptoms == nil
}

func (p PatientPatch) apply(r *PatientRecord) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Age != nil {
		r.Age = *p.Age
	}
	if p.Gender != nil {
		r.Gender = *p.Gender
	}
	if p.Weight != nil {
		r.Weight = *p.Weight
	}
	if p.Symptoms != nil {
		r.Symptoms = *p.Symptoms
	}
}

// VitalsPatch carries vitals keys to merge. Nil fields are left untouched.
type VitalsPatch struct {
	Temperature   *Field
	BloodPressure *Field
	Pulse         *Field
	SpO2          *Field
}

func (p VitalsPatch) Empty() bool {
	return p.Temperature == nil && p.BloodPressure == nil && p.Pulse == nil && p.SpO2 == nil
}

func (p VitalsPatch) apply(v *Vitals) {
	if p.Temperature != nil {
		v.Temperature = *p.Temperature
	}
	if p.BloodPressure != nil {
		v.BloodPressure = *p.BloodPressure
	}
	if p.Pulse != nil {
		v.Pulse = *p.Pulse
	}
	if p.SpO2 != nil {
		v.SpO2 = *p.SpO2
	}
}

// PatchesFromForm builds patches from submitted form values. Only keys that
// are present in the form end up in the patches, so a partial form never
// blanks fields it did not render.
func PatchesFromForm(form url.Values) (PatientPatch, VitalsPatch) {
	var p PatientPatch
	var v VitalsPatch

	p.Name = formString(form, "name")
	p.Age = formField(form, "age")
	p.Gender = formString(form, "gender")
	p.Weight = formField(form, "weight")
	p.Symptoms = formString(form, "symptoms")

	v.Temperature = formField(form, "temp")
	v.BloodPressure = formField(form, "bp")
	v.Pulse = formField(form, "hr")
	v.SpO2 = formField(form, "spo2")

	return p, v
}

func formString(form url.Values, key string) *string {
	vals, ok := form[key]
	if !ok {
		return nil
	}
	s := ""
	if len(vals) > 0 {
		s = vals[0]
	}
	return &s
}

func formField(form url.Values, key string) *Field {
	s := formString(form, key)
	if s == nil {
		return nil
	}
	f := Field(*s)
	return &f
}
