package activities

import (
	"context"

	"github.com/resilmesh/casm/internal/graph"
	"github.com/resilmesh/casm/pkg/logger"
)

// MaintenanceActivities runs the periodic housekeeping against the graph:
// the IP/subnet hierarchy rebuild and the age-based edge cleanup.
type MaintenanceActivities struct {
	graph *graph.Adapter
	log   *logger.Logger
}

// NewMaintenanceActivities creates the maintenance activity set.
func NewMaintenanceActivities(adapter *graph.Adapter, log *logger.Logger) *MaintenanceActivities {
	return &MaintenanceActivities{graph: adapter, log: log.WithComponent("maintenance-activities")}
}

// SyncIPHierarchy rebuilds the PART_OF hierarchy.
func (a *MaintenanceActivities) SyncIPHierarchy(ctx context.Context) error {
	return appError(a.graph.SyncHierarchy(ctx))
}

// CleanOldVulnerabilities reaps aged vulnerability edges.
func (a *MaintenanceActivities) CleanOldVulnerabilities(ctx context.Context) error {
	return appError(a.graph.CleanOldVulnerabilities(ctx))
}

// CleanHostLayer reaps aged host-layer edges.
func (a *MaintenanceActivities) CleanHostLayer(ctx context.Context) error {
	return appError(a.graph.CleanHostLayer(ctx))
}

// CleanNetworkLayer reaps aged network-layer edges.
func (a *MaintenanceActivities) CleanNetworkLayer(ctx context.Context) error {
	return appError(a.graph.CleanNetworkLayer(ctx))
}

// CleanSecurityEvents reaps aged security events.
func (a *MaintenanceActivities) CleanSecurityEvents(ctx context.Context) error {
	return appError(a.graph.CleanSecurityEvents(ctx))
}
