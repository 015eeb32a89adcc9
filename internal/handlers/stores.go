package handlers

import (
	"context"

	"github.com/sharif-ahmed/patientdesk/internal/model"
)

// PatientStore is the slice of the patient directory the handlers need.
// Implemented by storage.PatientRepository; tests substitute in-memory fakes.
type PatientStore interface {
	List(ctx context.Context) ([]model.Patient, error)
	GetByID(ctx context.Context, id int64) (model.Patient, error)
	GetByUsername(ctx context.Context, username string) (model.Patient, error)
	Create(ctx context.Context, p model.Patient) (model.Patient, error)
	Update(ctx context.Context, id int64, upd model.PatientUpdate) (model.Patient, error)
	Delete(ctx context.Context, id int64) error
}

// AppointmentStore is the appointment ledger contract.
type AppointmentStore interface {
	Create(ctx context.Context, appt model.Appointment) (model.Appointment, error)
	ListForPatient(ctx context.Context, patientID int64) ([]model.Appointment, error)
	Delete(ctx context.Context, id, requesterID int64) error
}
