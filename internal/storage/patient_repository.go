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

// PatientRepository owns the patients table. Mutations stage an outbox event
// in the same transaction as the row change.
type PatientRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPatientRepository(pool *db.Pool, outboxRepo *outbox.Repository) *PatientRepository {
	return &PatientRepository{pool: pool, outbox: outboxRepo}
}

func (r *PatientRepository) List(ctx context.Context) ([]model.Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, age, username, password_hash, created_at
		FROM patients
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Username, &p.PasswordHash, &p.CreatedAt); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id int64) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, age, username, password_hash, created_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Age, &p.Username, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Patient{}, ErrNotFound
	}
	if err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

func (r *PatientRepository) GetByUsername(ctx context.Context, username string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, age, username, password_hash, created_at
		FROM patients
		WHERE username = $1
	`, username).Scan(&p.ID, &p.Name, &p.Age, &p.Username, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Patient{}, ErrNotFound
	}
	if err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

// Create inserts a new patient. The password must already be hashed.
func (r *PatientRepository) Create(ctx context.Context, p model.Patient) (model.Patient, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Patient{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO patients (name, age, username, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, p.Name, p.Age, p.Username, p.PasswordHash).Scan(&p.ID, &p.CreatedAt)
	if isUniqueViolation(err) {
		return model.Patient{}, ErrUsernameTaken
	}
	if err != nil {
		return model.Patient{}, err
	}

	if err := r.stagePatientEvent(ctx, tx, outbox.EventPatientRegistered, p); err != nil {
		return model.Patient{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

// Update overwrites only the fields present on upd.
func (r *PatientRepository) Update(ctx context.Context, id int64, upd model.PatientUpdate) (model.Patient, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Patient{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p model.Patient
	err = tx.QueryRow(ctx, `
		UPDATE patients
		SET name = COALESCE($2, name),
			age = COALESCE($3, age),
			username = COALESCE($4, username),
			password_hash = COALESCE($5, password_hash)
		WHERE id = $1
		RETURNING id, name, age, username, password_hash, created_at
	`, id, upd.Name, upd.Age, upd.Username, upd.PasswordHash).
		Scan(&p.ID, &p.Name, &p.Age, &p.Username, &p.PasswordHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Patient{}, ErrNotFound
	}
	if isUniqueViolation(err) {
		return model.Patient{}, ErrUsernameTaken
	}
	if err != nil {
		return model.Patient{}, err
	}

	if err := r.stagePatientEvent(ctx, tx, outbox.EventPatientUpdated, p); err != nil {
		return model.Patient{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

// Delete removes the patient; appointments go with it via the FK cascade.
func (r *PatientRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	payload, err := json.Marshal(map[string]any{
		"patient_id": id,
		"deleted_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "patient",
		AggregateID:   strconv.FormatInt(id, 10),
		EventType:     outbox.EventPatientDeleted,
		Payload:       payload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PatientRepository) stagePatientEvent(ctx context.Context, tx pgx.Tx, eventType string, p model.Patient) error {
	payload, err := json.Marshal(map[string]any{
		"patient_id": p.ID,
		"name":       p.Name,
		"age":        p.Age,
		"username":   p.Username,
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "patient",
		AggregateID:   strconv.FormatInt(p.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	})
}
