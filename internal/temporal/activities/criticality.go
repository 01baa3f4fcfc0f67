package activities

import (
	"context"

	"github.com/resilmesh/casm/internal/criticality"
	"github.com/resilmesh/casm/internal/isim"
	"github.com/resilmesh/casm/pkg/logger"
	"github.com/resilmesh/casm/pkg/models"
)

// CriticalityActivities computes and stores mission and topology
// criticality.
type CriticalityActivities struct {
	isim *isim.Client
	log  *logger.Logger
}

// NewCriticalityActivities creates the criticality activity set.
func NewCriticalityActivities(isimClient *isim.Client, log *logger.Logger) *CriticalityActivities {
	return &CriticalityActivities{isim: isimClient, log: log.WithComponent("criticality-activities")}
}

// ComputeMissionCriticalities fetches all missions and propagates their
// criticality down to hosts.
func (a *CriticalityActivities) ComputeMissionCriticalities(ctx context.Context) ([]models.HostCriticality, error) {
	missions, err := a.isim.GetMissions(ctx)
	if err != nil {
		return nil, appError(err)
	}
	hosts, err := criticality.ComputeHostCriticalities(missions)
	if err != nil {
		return nil, appError(err)
	}
	a.log.Info("computed mission criticalities", "missions", len(missions), "hosts", len(hosts))
	return hosts, nil
}

// StoreMissionCriticalities stores the computed host criticalities.
func (a *CriticalityActivities) StoreMissionCriticalities(ctx context.Context, hosts []models.HostCriticality) (string, error) {
	response, err := a.isim.PostStoreCriticality(ctx, hosts)
	return response, appError(err)
}

// ComputeCentralities triggers betweenness and degree computation.
func (a *CriticalityActivities) ComputeCentralities(ctx context.Context) (string, error) {
	first, err := a.isim.PostBetweennessCentrality(ctx)
	if err != nil {
		return "", appError(err)
	}
	second, err := a.isim.PostDegreeCentrality(ctx)
	if err != nil {
		return "", appError(err)
	}
	return "first response: " + first + ", second response: " + second, nil
}

// ComputeFinalCriticalities fuses normalized centralities with mission
// criticality into the final score.
func (a *CriticalityActivities) ComputeFinalCriticalities(ctx context.Context) (string, error) {
	response, err := a.isim.PostCombineCriticality(ctx)
	return response, appError(err)
}
