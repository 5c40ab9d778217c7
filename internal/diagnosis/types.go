package diagnosis

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Number is a leniently parsed form number. Values that did not parse are
// carried as NaN and go over the wire as null.
type Number float64

func (n Number) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(n), 'f', -1, 64), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

func (n Number) String() string {
	if !n.Valid() {
		return "-"
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

type Patient struct {
	Name   string `json:"name"`
	Age    Number `json:"age"`
	Gender string `json:"gender"`
	Weight Number `json:"weight"`
}

type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

type Vitals struct {
	Temperature Number        `json:"temperature"`
	BP          BloodPressure `json:"bp"`
	Pulse       Number        `json:"pulse"`
}

// Request is the body of POST /analyze.
type Request struct {
	Language    string  `json:"language"`
	Patient     Patient `json:"patient"`
	Vitals      Vitals  `json:"vitals"`
	Symptoms    string  `json:"symptoms"`
	DoctorID    string  `json:"doctorId"`
	DoctorEmail string  `json:"doctorEmail"`
}

// Identity is the signed-in doctor a request is filed under.
type Identity struct {
	DoctorID    string
	DoctorEmail string
}
