package outbox

// Event types emitted by the service. Topic name equals event type.
const (
	EventPatientRegistered    = "patientdesk.patient.registered.v1"
	EventPatientUpdated       = "patientdesk.patient.updated.v1"
	EventPatientDeleted       = "patientdesk.patient.deleted.v1"
	EventAppointmentBooked    = "patientdesk.appointment.booked.v1"
	EventAppointmentCancelled = "patientdesk.appointment.cancelled.v1"
)

// Event is a domain change staged for publication. It is written in the same
// transaction as the change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
