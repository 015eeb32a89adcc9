package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sharif-ahmed/patientdesk/internal/cache"
	"github.com/sharif-ahmed/patientdesk/internal/model"
	"github.com/sharif-ahmed/patientdesk/internal/storage"
	"github.com/sharif-ahmed/patientdesk/libs/auth"
)

// PatientHandler serves the public directory reads, registration, sign-in
// and the owner-scoped patient mutations.
type PatientHandler struct {
	store     PatientStore
	listCache *cache.PatientList
	logger    *slog.Logger
	jwtSecret string
}

func NewPatientHandler(store PatientStore, listCache *cache.PatientList, logger *slog.Logger, jwtSecret string) *PatientHandler {
	return &PatientHandler{
		store:     store,
		listCache: listCache,
		logger:    logger,
		jwtSecret: jwtSecret,
	}
}

type patientResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Username string `json:"username"`
}

func toPatientResponse(p model.Patient) patientResponse {
	return patientResponse{
		ID:       p.ID,
		Name:     p.Name,
		Age:      p.Age,
		Username: p.Username,
	}
}

type signUpRequest struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updatePatientRequest struct {
	Name     *string `json:"name"`
	Age      *int    `json:"age"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// List handles GET /patients. The listing is public; the rendered body is
// cached when redis is configured.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	if body, ok := h.listCache.Get(r.Context()); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	patients, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("patient list failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "failed to list patients")
		return
	}

	out := make([]patientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, toPatientResponse(p))
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(out); err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to list patients")
		return
	}
	h.listCache.Set(r.Context(), buf.Bytes())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Get handles GET /patients/{id}.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "patient not found")
		return
	}

	p, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("patient lookup failed", "err", err, "patient_id", id)
		writeMessage(w, http.StatusInternalServerError, "failed to load patient")
		return
	}
	writeJSON(w, http.StatusOK, toPatientResponse(p))
}

// SignUp handles POST /sign_up.
func (h *PatientHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	if req.Name == "" || req.Username == "" || req.Password == "" || req.Age <= 0 {
		writeMessage(w, http.StatusBadRequest, "name, age, username and password are required")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	p, err := h.store.Create(r.Context(), model.Patient{
		Name:         req.Name,
		Age:          req.Age,
		Username:     req.Username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			writeMessage(w, http.StatusBadRequest, "username already taken")
			return
		}
		h.logger.Error("patient registration failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "failed to register patient")
		return
	}

	h.listCache.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, toPatientResponse(p))
}

// SignIn handles POST /sign_in and returns a fresh token on success.
func (h *PatientHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "username and password are required")
		return
	}

	p, err := h.store.GetByUsername(r.Context(), req.Username)
	if err != nil {
		// Unknown username short-circuits; no hash comparison against a
		// record that does not exist.
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusForbidden, "invalid credentials")
			return
		}
		h.logger.Error("sign-in lookup failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	if err := verifyPassword(p.PasswordHash, req.Password); err != nil {
		writeMessage(w, http.StatusForbidden, "invalid credentials")
		return
	}

	token, err := auth.Sign(auth.NewClaims(p.ID, time.Now()), h.jwtSecret)
	if err != nil {
		h.logger.Error("token issue failed", "err", err)
		writeMessage(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Update handles PUT /patients/{id}; only the owner may update their record.
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "patient not found")
		return
	}
	callerID, _ := PatientIDFromContext(r.Context())
	if callerID != id {
		writeMessage(w, http.StatusUnauthorized, "you may only modify your own record")
		return
	}

	var req updatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}

	upd := model.PatientUpdate{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeMessage(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		upd.Name = &name
	}
	if req.Age != nil {
		if *req.Age <= 0 {
			writeMessage(w, http.StatusBadRequest, "age must be positive")
			return
		}
		upd.Age = req.Age
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			writeMessage(w, http.StatusBadRequest, "username must not be empty")
			return
		}
		upd.Username = &username
	}
	if req.Password != nil {
		if *req.Password == "" {
			writeMessage(w, http.StatusBadRequest, "password must not be empty")
			return
		}
		hash, err := hashPassword(*req.Password)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		upd.PasswordHash = &hash
	}
	if upd.Empty() {
		writeMessage(w, http.StatusBadRequest, "no fields to update")
		return
	}

	p, err := h.store.Update(r.Context(), id, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeMessage(w, http.StatusNotFound, "patient not found")
		case errors.Is(err, storage.ErrUsernameTaken):
			writeMessage(w, http.StatusBadRequest, "username already taken")
		default:
			h.logger.Error("patient update failed", "err", err, "patient_id", id)
			writeMessage(w, http.StatusInternalServerError, "failed to update patient")
		}
		return
	}

	h.listCache.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, toPatientResponse(p))
}

// Delete handles DELETE /patients/{id}; only the owner may delete their
// record. Appointments are removed with it.
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "patient not found")
		return
	}
	callerID, _ := PatientIDFromContext(r.Context())
	if callerID != id {
		writeMessage(w, http.StatusUnauthorized, "you may only delete your own record")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("patient delete failed", "err", err, "patient_id", id)
		writeMessage(w, http.StatusInternalServerError, "failed to delete patient")
		return
	}

	h.listCache.Invalidate(r.Context())
	writeMessage(w, http.StatusOK, fmt.Sprintf("patient with id=%d deleted", id))
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
