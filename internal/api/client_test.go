package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/PulseNet/internal/diagnosis"
)

func TestAnalyzePostsRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"diagnosis":"Influenza","confidence":"82","referralNeeded":true,"drugInteractions":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", time.Second)
	res, err := c.Analyze(context.Background(), diagnosis.Request{
		Language: "en",
		Patient:  diagnosis.Patient{Name: "Asha", Age: 34, Gender: "female"},
		Vitals:   diagnosis.Vitals{BP: diagnosis.BloodPressure{Systolic: 118, Diastolic: 76}},
		Symptoms: "fever",
	})
	require.NoError(t, err)

	assert.Equal(t, "Influenza", res.Diagnosis)
	assert.Equal(t, diagnosis.Confidence(82), res.Confidence)
	assert.True(t, res.ReferralNeeded)
	assert.Equal(t, "Asha", got["patient"].(map[string]any)["name"])
}

func TestAnalyzeErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"validation list", `{"detail":[{"loc":["body","patient"],"msg":"field required"}]}`, "field required"},
		{"plain detail", `{"detail":"model unavailable"}`, "model unavailable"},
		{"empty list", `{"detail":[]}`, ""},
		{"not json", `<html>bad gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Analyze(context.Background(), diagnosis.Request{})
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.UserMessage())
		})
	}
}

func TestAnalyzeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, time.Second).Analyze(context.Background(), diagnosis.Request{})
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestDoctorRecordsKeepsBadEntriesAsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctor/records", r.URL.Path)
		assert.Equal(t, "doc+1@clinic.test", r.URL.Query().Get("email"))
		_, _ = w.Write([]byte(`[
			{"_id":"a1","patient_info":{"patient":{"name":"Asha","age":34}},"diagnosis_result":{"diagnosis":"Influenza"},"timestamp":"2024-05-01T10:00:00"},
			"garbage",
			{"_id":"a3"}
		]`))
	}))
	defer srv.Close()

	records, err := NewClient(srv.URL, time.Second).DoctorRecords(context.Background(), "doc+1@clinic.test")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Asha", records[0].PatientInfo.Patient.Name)
	assert.Equal(t, diagnosis.HistoryRecord{}, records[1])
	assert.Nil(t, records[2].DiagnosisResult)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Message == "silent" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"reply":"echo ` + in.Message + ` in ` + in.Language + `"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	reply, err := c.Chat(context.Background(), "hello", "ta")
	require.NoError(t, err)
	assert.Equal(t, "echo hello in ta", reply)

	_, err = c.Chat(context.Background(), "silent", "en")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0)
	assert.Equal(t, DefaultBaseURL, c.base)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestClientWithCustomHTTPClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"secure hello"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Chat(context.Background(), "hi", "en")
	require.Error(t, err, "the default client must not trust the test certificate")

	c := NewClient(srv.URL, time.Second, WithHTTPClient(srv.Client()))
	reply, err := c.Chat(context.Background(), "hi", "en")
	require.NoError(t, err)
	assert.Equal(t, "secure hello", reply)
}
