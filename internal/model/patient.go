package model

import "time"

// Patient is a registered patient. PasswordHash never leaves the process;
// JSON serialization happens on dedicated response shapes in the handlers.
type Patient struct {
	ID           int64
	Name         string
	Age          int
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// PatientUpdate carries a partial patient mutation. Nil fields are left
// untouched; Password, when set, must already be hashed.
type PatientUpdate struct {
	Name         *string
	Age          *int
	Username     *string
	PasswordHash *string
}

func (u PatientUpdate) Empty() bool {
	return u.Name == nil && u.Age == nil && u.Username == nil && u.PasswordHash == nil
}
