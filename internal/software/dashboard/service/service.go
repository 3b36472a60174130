package service

import (
	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/ports"
	"fleet-tracker/internal/roster"
	"fleet-tracker/internal/tracking/store"
)

// dashboardService encapsulates the dashboard use cases and dependencies.
type dashboardService struct {
	roster roster.Provider
	store  *store.Store
	logger *log.Logger
}

// NewDashboardService creates a DashboardService over a roster and the
// tracking store.
func NewDashboardService(p roster.Provider, st *store.Store, logger *log.Logger) ports.DashboardService {
	if logger == nil {
		logger = log.Nop()
	}
	return &dashboardService{roster: p, store: st, logger: logger}
}
