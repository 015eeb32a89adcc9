package model

import "time"

// Appointment belongs to exactly one patient. PatientID is set from the
// authenticated caller at creation and never changes afterwards.
type Appointment struct {
	ID        int64
	PatientID int64
	StartTime time.Time
	EndTime   time.Time
	CreatedAt time.Time
}
