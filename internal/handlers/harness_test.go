package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testSecret = "test-secret"

type testAPI struct {
	handler      http.Handler
	patients     *fakePatientStore
	appointments *fakeAppointmentStore
}

// newTestAPI wires the handlers onto a mux with the same routes main uses,
// backed by in-memory stores.
func newTestAPI() *testAPI {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	patients := newFakePatientStore()
	appointments := newFakeAppointmentStore()

	patientHandler := NewPatientHandler(patients, nil, logger, testSecret)
	appointmentHandler := NewAppointmentHandler(appointments, logger)
	authn := NewAuthenticator(testSecret, patients)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /patients", patientHandler.List)
	mux.HandleFunc("GET /patients/{id}", patientHandler.Get)
	mux.HandleFunc("POST /sign_up", patientHandler.SignUp)
	mux.HandleFunc("POST /sign_in", patientHandler.SignIn)
	mux.HandleFunc("PUT /patients/{id}", authn.Require(patientHandler.Update))
	mux.HandleFunc("DELETE /patients/{id}", authn.Require(patientHandler.Delete))
	mux.HandleFunc("POST /appointments", authn.Require(appointmentHandler.Create))
	mux.HandleFunc("GET /appointments", authn.Require(appointmentHandler.List))
	mux.HandleFunc("DELETE /appointments/{id}", authn.Require(appointmentHandler.Delete))

	return &testAPI{
		handler:      mux,
		patients:     patients,
		appointments: appointments,
	}
}

func (api *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set(AuthTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func (api *testAPI) signUp(t *testing.T, name string, age int, username, password string) int64 {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/sign_up", "", map[string]any{
		"name":     name,
		"age":      age,
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign_up returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &resp)
	return resp.ID
}

func (api *testAPI) signIn(t *testing.T, username, password string) string {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/sign_in", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign_in returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("sign_in returned an empty token")
	}
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
