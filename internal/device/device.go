package device

import "github.com/Agrid-Dev/heatpumpcop/internal/session"

// Device is one estimator instance exposed by the controllers.
type Device struct {
	ID string
	S  *session.Session
}

func New(id string, s *session.Session) *Device {
	return &Device{ID: id, S: s}
}
