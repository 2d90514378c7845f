package provider

import (
	"context"
	"time"

	"skylift/internal/cloud/catalog"
)

// Instance status values reported by providers.
const (
	StatusPending = "Pending"
	StatusRunning = "Running"
	StatusFailed  = "Failed"
)

// Instance represents a provisioned workload on a provider.
type Instance struct {
	ID           string
	Provider     string
	InstanceType string
	Status       string
	Region       string
	CreatedAt    time.Time
	PodName      string
	Namespace    string
}

// Capabilities describes what a provider backend can do. Immutable per
// process lifetime.
type Capabilities struct {
	Accelerators bool
	MultiNode    bool
	Autoscale    bool
}

// ProvisionSpec describes what to create on a provider.
type ProvisionSpec struct {
	ClusterName string
	Offer       catalog.Offer
}

// Provider defines the interface for cloud backends. A Kubernetes cluster is
// modeled as one more provider alongside the public clouds.
type Provider interface {
	Name() string
	Capabilities() Capabilities

	// DefaultProvisionTimeout bounds how long a provisioning attempt waits
	// for readiness when the request does not override it. Autoscaling
	// clusters need a longer caller-supplied override.
	DefaultProvisionTimeout() time.Duration

	// RunnerImage is the container image launched on provisioned instances.
	// The image must include rsync and conda so workdirs can be synced and
	// environments set up.
	RunnerImage() string

	// Offers returns this provider's catalog entries.
	Offers() []catalog.Offer

	// CheckAccess probes whether the provider is usable with the current
	// credentials. Used by `skylift check`.
	CheckAccess(ctx context.Context) error

	// Instance management
	Provision(ctx context.Context, spec ProvisionSpec) (*Instance, error)
	Status(ctx context.Context, id string) (*Instance, error)
	Terminate(ctx context.Context, id string) error
}

// AcceleratorGate is implemented by providers that can only schedule onto
// accelerator nodes carrying the expected label. The feasibility filter
// consults it before admitting accelerator offers.
type AcceleratorGate interface {
	HasAcceleratorNode(ctx context.Context, name string) (bool, error)
}
