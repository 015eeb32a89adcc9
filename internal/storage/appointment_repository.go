package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sharif-ahmed/patientdesk/internal/model"
	"github.com/sharif-ahmed/patientdesk/internal/outbox"
	"github.com/sharif-ahmed/patientdesk/libs/db"
)

// AppointmentRepository owns the appointments table.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: outboxRepo}
}

// Create books an appointment for the given patient. The patient id comes
// from the authenticated caller, never from client input.
func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, start_time, end_time)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, appt.PatientID, appt.StartTime, appt.EndTime).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"start_time":     appt.StartTime.Format(time.RFC3339),
		"end_time":       appt.EndTime.Format(time.RFC3339),
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   strconv.FormatInt(appt.ID, 10),
		EventType:     outbox.EventAppointmentBooked,
		Payload:       payload,
	}); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) ListForPatient(ctx context.Context, patientID int64) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, start_time, end_time, created_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.StartTime, &a.EndTime, &a.CreatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// Delete cancels an appointment on behalf of requesterID. The ownership check
// runs inside the delete transaction so the row cannot change hands between
// check and delete.
func (r *AppointmentRepository) Delete(ctx context.Context, id, requesterID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerID int64
	err = tx.QueryRow(ctx, `
		SELECT patient_id FROM appointments WHERE id = $1 FOR UPDATE
	`, id).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ownerID != requesterID {
		return ErrNotOwner
	}

	if _, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": id,
		"patient_id":     ownerID,
		"cancelled_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   strconv.FormatInt(id, 10),
		EventType:     outbox.EventAppointmentCancelled,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
