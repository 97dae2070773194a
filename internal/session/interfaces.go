package session

import (
	"context"

	"netbackup/internal/models"
)

// Connector establishes sessions to devices. Implementations own their
// timeouts; any failure is reported as a connection error.
//
//go:generate mockery --name=Connector --output=./mocks
type Connector interface {
	Connect(ctx context.Context, device models.Device) (Session, error)
}

// Session is an established connection to a single device. It is never
// shared across devices.
//
//go:generate mockery --name=Session --output=./mocks
type Session interface {
	Retrieve(ctx context.Context, deviceType string) (string, error)
	Close() error
}
