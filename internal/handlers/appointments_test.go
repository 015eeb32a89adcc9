package handlers

import (
	"net/http"
	"testing"
	"time"
)

func TestAppointmentBookingFlow(t *testing.T) {
	api := newTestAPI()
	johnID := api.signUp(t, "John", 40, "john1", "pw")
	token := api.signIn(t, "john1", "pw")

	rec := api.do(t, http.MethodGet, "/appointments", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []appointmentResponse
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("expected empty ledger, got %+v", list)
	}

	rec = api.do(t, http.MethodPost, "/appointments", token, map[string]string{
		"from_datetime": "2024-01-01T10:00",
		"to_datetime":   "2024-01-01T11:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/appointments", token, nil)
	decodeBody(t, rec, &list)
	if len(list) != 1 {
		t.Fatalf("expected one appointment, got %d", len(list))
	}
	if list[0].PatientID != johnID {
		t.Fatalf("appointment owned by %d, want %d", list[0].PatientID, johnID)
	}
}

func TestAppointmentOwnerComesFromToken(t *testing.T) {
	api := newTestAPI()
	api.signUp(t, "John", 40, "john1", "pw")
	tomID := api.signUp(t, "Tom", 45, "tom1", "pw")
	tomToken := api.signIn(t, "tom1", "pw")

	// A patient_id in the body must be ignored; ownership is the caller's.
	rec := api.do(t, http.MethodPost, "/appointments", tomToken, map[string]any{
		"patient_id":    1,
		"from_datetime": "2024-02-01T09:00",
		"to_datetime":   "2024-02-01T09:30",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodGet, "/appointments", tomToken, nil)
	var list []appointmentResponse
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].PatientID != tomID {
		t.Fatalf("expected appointment owned by %d, got %+v", tomID, list)
	}
}

func TestAppointmentListIsOwnerScoped(t *testing.T) {
	api := newTestAPI()
	api.signUp(t, "John", 40, "john1", "pw")
	api.signUp(t, "Tom", 45, "tom1", "pw")
	johnToken := api.signIn(t, "john1", "pw")
	tomToken := api.signIn(t, "tom1", "pw")

	rec := api.do(t, http.MethodPost, "/appointments", johnToken, map[string]string{
		"from_datetime": "2024-01-01T10:00:00Z",
		"to_datetime":   "2024-01-01T11:00:00Z",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("booking failed: %d", rec.Code)
	}

	rec = api.do(t, http.MethodGet, "/appointments", tomToken, nil)
	var list []appointmentResponse
	decodeBody(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("tom must not see john's appointments: %+v", list)
	}
}

func TestAppointmentValidation(t *testing.T) {
	api := newTestAPI()
	api.signUp(t, "John", 40, "john1", "pw")
	token := api.signIn(t, "john1", "pw")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing from", map[string]string{"to_datetime": "2024-01-01T11:00"}},
		{"missing to", map[string]string{"from_datetime": "2024-01-01T10:00"}},
		{"bad from", map[string]string{"from_datetime": "yesterday", "to_datetime": "2024-01-01T11:00"}},
		{"bad to", map[string]string{"from_datetime": "2024-01-01T10:00", "to_datetime": "later"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/appointments", token, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestDeleteAppointment(t *testing.T) {
	api := newTestAPI()
	api.signUp(t, "John", 40, "john1", "pw")
	token := api.signIn(t, "john1", "pw")

	rec := api.do(t, http.MethodPost, "/appointments", token, map[string]string{
		"from_datetime": "2024-01-01T10:00",
		"to_datetime":   "2024-01-01T11:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("booking failed: %d", rec.Code)
	}

	rec = api.do(t, http.MethodDelete, "/appointments/1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = api.do(t, http.MethodDelete, "/appointments/1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a deleted appointment, got %d", rec.Code)
	}
}

func TestDeleteAppointmentNotOwner(t *testing.T) {
	api := newTestAPI()
	api.signUp(t, "John", 40, "john1", "pw")
	api.signUp(t, "Tom", 45, "tom1", "pw")
	johnToken := api.signIn(t, "john1", "pw")
	tomToken := api.signIn(t, "tom1", "pw")

	rec := api.do(t, http.MethodPost, "/appointments", johnToken, map[string]string{
		"from_datetime": "2024-01-01T10:00",
		"to_datetime":   "2024-01-01T11:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("booking failed: %d", rec.Code)
	}

	rec = api.do(t, http.MethodDelete, "/appointments/1", tomToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-owner delete, got %d", rec.Code)
	}
}

func TestParseDatetimeVariants(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-01-01T10:00:00Z",
		"2024-01-01T10:00:00",
		"2024-01-01T10:00",
	} {
		got, err := parseDatetime(raw)
		if err != nil {
			t.Fatalf("parseDatetime(%q) failed: %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parseDatetime(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := parseDatetime("01/01/2024"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}
