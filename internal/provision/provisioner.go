// Package provision drives a provider's create call to readiness within a
// bounded timeout. One attempt moves through
// Pending -> Requested -> (Ready | TimedOut | Failed); a timed-out or failed
// attempt is reported, never retried here. Retrying a request that may have
// partially succeeded risks duplicate resources, so that call is the
// caller's to make.
package provision

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"skylift/internal/cloud/provider"
	"skylift/internal/errdefs"
	"skylift/internal/metrics"
	"skylift/internal/optimizer"
)

// State of a provisioning attempt.
type State string

const (
	StatePending   State = "Pending"
	StateRequested State = "Requested"
	StateReady     State = "Ready"
	StateTimedOut  State = "TimedOut"
	StateFailed    State = "Failed"
)

// Terminal reports whether a state ends the attempt.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Event is one state transition of an attempt, streamed to observers.
type Event struct {
	State   State     `json:"state"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Request describes one provisioning attempt.
type Request struct {
	ClusterName string
	Provider    provider.Provider
	Offer       optimizer.Candidate

	// Timeout bounds the wait for readiness. Zero uses the provider's
	// default; callers targeting autoscaling clusters should raise it.
	Timeout time.Duration

	// PollInterval between readiness checks. Zero uses the default.
	PollInterval time.Duration
}

const defaultPollInterval = 5 * time.Second

// Provisioner runs provisioning attempts. Safe for concurrent use; attempts
// are independent.
type Provisioner struct {
	log logrus.FieldLogger
}

// NewProvisioner creates a provisioner logging through the given logger.
func NewProvisioner(log logrus.FieldLogger) *Provisioner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Provisioner{log: log}
}

// Attempt is a running or finished provisioning attempt.
type Attempt struct {
	ID string

	events chan Event

	mu     sync.Mutex
	state  State
	record *Record
	err    error
	done   chan struct{}
}

// Events streams the attempt's state transitions. The channel is closed
// after the terminal event.
func (a *Attempt) Events() <-chan Event {
	return a.events
}

// State returns the attempt's current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Wait blocks until the attempt reaches a terminal state and returns its
// record or error.
func (a *Attempt) Wait() (*Record, error) {
	<-a.done
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record, a.err
}

func (a *Attempt) transition(s State, msg string) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
	// Buffered channel sized for the longest possible transition sequence,
	// so emission never blocks on a slow observer.
	a.events <- Event{State: s, Message: msg, Time: time.Now()}
}

func (a *Attempt) finish(rec *Record, err error) {
	a.mu.Lock()
	a.record = rec
	a.err = err
	a.mu.Unlock()
	close(a.events)
	close(a.done)
}

// Start begins an attempt and returns immediately. The attempt polls the
// provider for readiness in its own goroutine; use Wait or Events to follow
// it. The kubeconfig current-context is never touched here, so a cancelled
// or failed attempt leaves subsequent commands pointing where they did
// before.
func (p *Provisioner) Start(ctx context.Context, req Request) (*Attempt, error) {
	if req.Provider == nil {
		return nil, errdefs.Configuration("provision request has no provider")
	}
	if req.ClusterName == "" {
		return nil, errdefs.Configuration("provision request has no cluster name")
	}

	a := &Attempt{
		ID: fmt.Sprintf("%s-%d", req.ClusterName, time.Now().UnixNano()),
		// Pending + Requested + TimedOut + terminal = at most 4 events.
		events: make(chan Event, 8),
		state:  StatePending,
		done:   make(chan struct{}),
	}

	go p.run(ctx, req, a)
	return a, nil
}

// Provision runs an attempt to completion, blocking the caller.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Record, error) {
	a, err := p.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.Wait()
}

func (p *Provisioner) run(ctx context.Context, req Request, a *Attempt) {
	providerName := req.Provider.Name()
	offer := req.Offer.Offer
	log := p.log.WithFields(logrus.Fields{
		"provider": providerName,
		"instance": offer.InstanceType,
		"cluster":  req.ClusterName,
	})

	started := time.Now()
	outcome := "failed"
	defer func() {
		metrics.ProvisionAttempts.WithLabelValues(providerName, outcome).Inc()
		metrics.ProvisionDuration.WithLabelValues(providerName).Observe(time.Since(started).Seconds())
	}()

	a.transition(StatePending, fmt.Sprintf("provisioning %s", offer))

	inst, err := req.Provider.Provision(ctx, provider.ProvisionSpec{
		ClusterName: req.ClusterName,
		Offer:       offer,
	})
	if err != nil {
		log.WithError(err).Error("provision request failed")
		a.transition(StateFailed, err.Error())
		a.finish(nil, fmt.Errorf("provider %s: provisioning %s: %w", providerName, offer, err))
		return
	}

	a.transition(StateRequested, fmt.Sprintf("created instance %s", inst.ID))
	log.WithField("id", inst.ID).Info("instance requested, waiting for readiness")

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = req.Provider.DefaultProvisionTimeout()
	}
	interval := req.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.WithError(ctx.Err()).Warn("provisioning cancelled")
			a.transition(StateFailed, "cancelled")
			a.finish(nil, fmt.Errorf("provider %s: provisioning %s cancelled: %w", providerName, offer, ctx.Err()))
			return

		case <-deadline.C:
			err := errdefs.ProvisioningTimeoutf(
				"provider %s: instance %s (%s) not ready after %s; raise the provision timeout for autoscaling clusters",
				providerName, inst.ID, offer.InstanceType, timeout)
			log.WithField("timeout", timeout).Error("provisioning timed out")
			a.transition(StateTimedOut, err.Error())
			a.transition(StateFailed, "timed out")
			outcome = "timeout"
			a.finish(nil, err)
			return

		case <-ticker.C:
			cur, err := req.Provider.Status(ctx, inst.ID)
			if err != nil {
				log.WithError(err).Error("readiness poll failed")
				a.transition(StateFailed, err.Error())
				a.finish(nil, fmt.Errorf("provider %s: polling %s: %w", providerName, inst.ID, err))
				return
			}

			switch cur.Status {
			case provider.StatusRunning:
				rec := newRecord(req, inst, started)
				log.WithField("id", inst.ID).Info("instance ready")
				a.transition(StateReady, fmt.Sprintf("instance %s ready", inst.ID))
				outcome = "ready"
				a.finish(rec, nil)
				return
			case provider.StatusFailed:
				err := errdefs.ProviderAPIf("provider %s: instance %s entered failed state", providerName, inst.ID)
				log.Error("instance failed during provisioning")
				a.transition(StateFailed, err.Error())
				a.finish(nil, err)
				return
			}
			// Still pending; keep polling.
		}
	}
}
