package service

import (
	"time"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
	"github.com/Sentinel-Gate/filegate/internal/domain/session"
	"github.com/Sentinel-Gate/filegate/pkg/wire"
)

// StatusService builds point-in-time status reports from the allocator and
// session registry. Each source is read under its own lock; the two reads
// are not atomic with respect to each other.
type StatusService struct {
	allocator identity.Allocator
	registry  session.Registry
	location  *time.Location
}

// NewStatusService creates a StatusService. Timestamps are rendered in
// local time.
func NewStatusService(allocator identity.Allocator, registry session.Registry) *StatusService {
	return &StatusService{
		allocator: allocator,
		registry:  registry,
		location:  time.Local,
	}
}

// Report returns the current occupancy and every known session record,
// ordered by slot number.
func (s *StatusService) Report() wire.StatusReport {
	records := s.registry.Snapshot()

	clients := make([]wire.ClientStatus, 0, len(records))
	for _, rec := range records {
		cs := wire.ClientStatus{
			Name:        rec.Identity.String(),
			Address:     wire.Endpoint{Host: rec.Address.Host, Port: rec.Address.Port},
			ConnectedAt: rec.ConnectedAt.In(s.location).Format(wire.TimeLayout),
		}
		if rec.DisconnectedAt != nil {
			d := rec.DisconnectedAt.In(s.location).Format(wire.TimeLayout)
			cs.DisconnectedAt = &d
		}
		clients = append(clients, cs)
	}

	return wire.StatusReport{
		Capacity: s.allocator.Capacity(),
		Active:   s.allocator.InUse(),
		Clients:  clients,
	}
}
