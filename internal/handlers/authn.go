package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sharif-ahmed/patientdesk/internal/storage"
	"github.com/sharif-ahmed/patientdesk/libs/auth"
)

// AuthTokenHeader carries the signed token on protected routes.
const AuthTokenHeader = "X-Auth-Token"

type ctxKey int

const ctxKeyPatientID ctxKey = iota

// PatientIDFromContext returns the authenticated patient id set by
// Authenticator.Require.
func PatientIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyPatientID).(int64)
	return id, ok
}

// Authenticator gates protected routes. A request passes only when the
// header token verifies and its subject still resolves to a patient; a token
// for a deleted patient is rejected, never forwarded as an empty identity.
type Authenticator struct {
	secret   string
	patients PatientStore
}

func NewAuthenticator(secret string, patients PatientStore) *Authenticator {
	return &Authenticator{secret: secret, patients: patients}
}

func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(AuthTokenHeader))
		if token == "" {
			writeMessage(w, http.StatusBadRequest, "authentication token required")
			return
		}

		claims, err := auth.ParseAndVerify(token, a.secret)
		if err != nil {
			writeMessage(w, http.StatusForbidden, "invalid or expired token")
			return
		}

		p, err := a.patients.GetByID(r.Context(), claims.Sub)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeMessage(w, http.StatusForbidden, "invalid or expired token")
				return
			}
			writeMessage(w, http.StatusInternalServerError, "failed to resolve identity")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPatientID, p.ID)
		next(w, r.WithContext(ctx))
	}
}
