package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"skylift/internal/cloud/catalog"
	"skylift/internal/errdefs"
)

// Fake implements Provider with in-memory storage. It backs tests and the
// control plane's dry-run mode. Readiness delay and provisioning failures
// are injectable.
type Fake struct {
	name    string
	caps    Capabilities
	timeout time.Duration
	offers  []catalog.Offer

	// ReadyAfter delays the Pending -> Running transition. Zero means
	// instances are Running immediately.
	ReadyAfter time.Duration

	// ProvisionErr, when set, is returned by every Provision call.
	ProvisionErr error

	// AcceleratorNodes lists accelerator names considered labelled. The
	// gate only applies to a fake standing in for kubernetes; the label
	// rule is cluster-specific and other clouds are never gated.
	AcceleratorNodes []string

	mu        sync.RWMutex
	instances map[string]*fakeInstance
	seq       int
}

type fakeInstance struct {
	instance Instance
	readyAt  time.Time
}

// NewFake creates a fake provider advertising the given offers.
func NewFake(name string, offers []catalog.Offer) *Fake {
	return &Fake{
		name:      name,
		caps:      Capabilities{Accelerators: true, MultiNode: true},
		timeout:   5 * time.Minute,
		offers:    offers,
		instances: make(map[string]*fakeInstance),
	}
}

func (f *Fake) Name() string                          { return f.name }
func (f *Fake) Capabilities() Capabilities            { return f.caps }
func (f *Fake) DefaultProvisionTimeout() time.Duration { return f.timeout }
func (f *Fake) RunnerImage() string                   { return "skylift/runner:dev" }
func (f *Fake) Offers() []catalog.Offer               { return f.offers }

// SetDefaultProvisionTimeout overrides the fake's provider-level timeout.
func (f *Fake) SetDefaultProvisionTimeout(d time.Duration) { f.timeout = d }

func (f *Fake) CheckAccess(ctx context.Context) error { return nil }

// HasAcceleratorNode reports whether the fake has a labelled node for the
// accelerator name. Only a fake named "kubernetes" enforces the label
// gate; any other cloud is always open.
func (f *Fake) HasAcceleratorNode(ctx context.Context, name string) (bool, error) {
	if f.name != "kubernetes" {
		return true, nil
	}
	for _, n := range f.AcceleratorNodes {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}

// Provision records an in-memory instance that becomes Running after
// ReadyAfter has elapsed.
func (f *Fake) Provision(ctx context.Context, spec ProvisionSpec) (*Instance, error) {
	if f.ProvisionErr != nil {
		return nil, f.ProvisionErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	id := fmt.Sprintf("%s-%d", spec.ClusterName, f.seq)
	now := time.Now()

	status := StatusRunning
	if f.ReadyAfter > 0 {
		status = StatusPending
	}

	fi := &fakeInstance{
		instance: Instance{
			ID:           id,
			Provider:     f.name,
			InstanceType: spec.Offer.InstanceType,
			Status:       status,
			Region:       spec.Offer.Region,
			CreatedAt:    now,
		},
		readyAt: now.Add(f.ReadyAfter),
	}
	f.instances[id] = fi

	inst := fi.instance
	return &inst, nil
}

// Status retrieves an instance, transitioning it to Running once its
// readiness delay has passed.
func (f *Fake) Status(ctx context.Context, id string) (*Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fi, exists := f.instances[id]
	if !exists {
		return nil, errdefs.NotFoundf("instance not found: %s", id)
	}

	if fi.instance.Status == StatusPending && !time.Now().Before(fi.readyAt) {
		fi.instance.Status = StatusRunning
	}

	inst := fi.instance
	return &inst, nil
}

// Terminate deletes an instance.
func (f *Fake) Terminate(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.instances[id]; !exists {
		return errdefs.NotFoundf("instance not found: %s", id)
	}

	delete(f.instances, id)
	return nil
}

// ListInstances lists all in-memory instances.
func (f *Fake) ListInstances(ctx context.Context) ([]*Instance, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	instances := make([]*Instance, 0, len(f.instances))
	for _, fi := range f.instances {
		inst := fi.instance
		instances = append(instances, &inst)
	}

	return instances, nil
}
