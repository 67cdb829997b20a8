package device

import (
	"testing"

	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

func TestNewDevice(t *testing.T) {
	id := "test-id"
	s, err := session.New(session.DefaultInputs())
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	d := New(id, s)

	if d.ID != id {
		t.Errorf("Expected device ID to be %s, got %s", id, d.ID)
	}
	if d.S != s {
		t.Errorf("Expected device to keep its session")
	}
}
