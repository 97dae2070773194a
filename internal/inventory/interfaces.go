package inventory

import (
	"context"

	"netbackup/internal/models"
)

// Source produces the ordered device inventory for a run.
//
//go:generate mockery --name=Source --output=./mocks
type Source interface {
	Devices(ctx context.Context) ([]models.Device, error)
}
