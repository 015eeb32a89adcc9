package handlers

import (
	"context"
	"sort"
	"sync"

	"github.com/sharif-ahmed/patientdesk/internal/model"
	"github.com/sharif-ahmed/patientdesk/internal/storage"
)

// fakePatientStore mirrors the PatientRepository contract in memory.
type fakePatientStore struct {
	mu       sync.Mutex
	nextID   int64
	patients map[int64]model.Patient
}

func newFakePatientStore() *fakePatientStore {
	return &fakePatientStore{patients: map[int64]model.Patient{}}
}

func (s *fakePatientStore) List(_ context.Context) ([]model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakePatientStore) GetByID(_ context.Context, id int64) (model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return model.Patient{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *fakePatientStore) GetByUsername(_ context.Context, username string) (model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.patients {
		if p.Username == username {
			return p, nil
		}
	}
	return model.Patient{}, storage.ErrNotFound
}

func (s *fakePatientStore) Create(_ context.Context, p model.Patient) (model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.Username == p.Username {
			return model.Patient{}, storage.ErrUsernameTaken
		}
	}
	s.nextID++
	p.ID = s.nextID
	s.patients[p.ID] = p
	return p, nil
}

func (s *fakePatientStore) Update(_ context.Context, id int64, upd model.PatientUpdate) (model.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return model.Patient{}, storage.ErrNotFound
	}
	if upd.Username != nil {
		for otherID, other := range s.patients {
			if otherID != id && other.Username == *upd.Username {
				return model.Patient{}, storage.ErrUsernameTaken
			}
		}
		p.Username = *upd.Username
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Age != nil {
		p.Age = *upd.Age
	}
	if upd.PasswordHash != nil {
		p.PasswordHash = *upd.PasswordHash
	}
	s.patients[id] = p
	return p, nil
}

func (s *fakePatientStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.patients, id)
	return nil
}

func (s *fakePatientStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patients)
}

// fakeAppointmentStore mirrors the AppointmentRepository contract.
type fakeAppointmentStore struct {
	mu           sync.Mutex
	nextID       int64
	appointments map[int64]model.Appointment
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{appointments: map[int64]model.Appointment{}}
}

func (s *fakeAppointmentStore) Create(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	appt.ID = s.nextID
	s.appointments[appt.ID] = appt
	return appt, nil
}

func (s *fakeAppointmentStore) ListForPatient(_ context.Context, patientID int64) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *fakeAppointmentStore) Delete(_ context.Context, id, requesterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return storage.ErrNotFound
	}
	if a.PatientID != requesterID {
		return storage.ErrNotOwner
	}
	delete(s.appointments, id)
	return nil
}
