package provision

import (
	"time"

	"skylift/internal/cloud/provider"
)

// Record is the structured result of a successful provisioning attempt.
type Record struct {
	Provider     string    `json:"provider"`
	Region       string    `json:"region,omitempty"`
	ClusterName  string    `json:"cluster_name"`
	InstanceID   string    `json:"instance_id"`
	InstanceType string    `json:"instance_type"`
	HourlyCost   float64   `json:"hourly_cost"`
	StartedAt    time.Time `json:"started_at"`
	ReadyAt      time.Time `json:"ready_at"`
}

func newRecord(req Request, inst *provider.Instance, started time.Time) *Record {
	region := inst.Region
	if region == "" {
		region = req.Offer.Offer.Region
	}
	return &Record{
		Provider:     req.Provider.Name(),
		Region:       region,
		ClusterName:  req.ClusterName,
		InstanceID:   inst.ID,
		InstanceType: inst.InstanceType,
		HourlyCost:   req.Offer.Offer.HourlyCost,
		StartedAt:    started,
		ReadyAt:      time.Now(),
	}
}
