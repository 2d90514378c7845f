// Package lifecycle owns the local cluster session and the kubeconfig
// current-context pointer. The pointer is process-wide shared mutable state
// (a single file), so every read or write of it goes through the Manager's
// serialized Up/Down operations.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"skylift/internal/errdefs"
	"skylift/internal/metrics"
)

// Session lifecycle states.
type State string

const (
	StateAbsent       State = "absent"
	StateProvisioning State = "provisioning"
	StateActive       State = "active"
	StateTearingDown  State = "tearing_down"
)

// Session tracks one local cluster and the context to restore on teardown.
type Session struct {
	ClusterName string    `json:"cluster_name"`
	ContextName string    `json:"context_name"`
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`

	// PriorContext is the current-context captured immediately before Up
	// switched it. Down restores exactly this value, regardless of any
	// context switches in between.
	PriorContext string `json:"prior_context"`
}

// ClusterDriver creates and deletes the local cluster itself.
type ClusterDriver interface {
	Create(ctx context.Context, name string) error
	Delete(ctx context.Context, name string) error

	// ContextName returns the kubeconfig context the driver registers for
	// a cluster name.
	ContextName(name string) string
}

// DefaultClusterName names the local cluster when the caller does not.
const DefaultClusterName = "skylift"

// Manager serializes local cluster bring-up and tear-down. Up and Down are
// mutually exclusive; racing context captures would lose the original
// pointer.
type Manager struct {
	mu          sync.Mutex
	kubeconfig  string
	driver      ClusterDriver
	store       *SessionStore
	clusterName string
	log         logrus.FieldLogger
}

// NewManager creates a lifecycle manager operating on the kubeconfig at the
// given path.
func NewManager(kubeconfig string, driver ClusterDriver, store *SessionStore, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		kubeconfig:  kubeconfig,
		driver:      driver,
		store:       store,
		clusterName: DefaultClusterName,
		log:         log,
	}
}

// Up creates the local cluster and switches the current context to it. The
// prior context is captured and persisted before any mutation, so Down can
// restore it even across process restarts. Calling Up while a session
// exists is an error, not a no-op: ignoring it could hide loss of the
// original context.
func (m *Manager) Up(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.State != StateAbsent {
		return nil, errdefs.AlreadyExistsf("local cluster %q already exists (state %s); run `skylift local down` first",
			existing.ClusterName, existing.State)
	}

	prior, err := CurrentContext(m.kubeconfig)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ClusterName:  m.clusterName,
		State:        StateProvisioning,
		CreatedAt:    time.Now(),
		PriorContext: prior,
	}
	// Persist the captured context before touching anything.
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{"cluster": m.clusterName, "prior_context": prior}).
		Info("creating local cluster")

	if err := m.driver.Create(ctx, m.clusterName); err != nil {
		// Nothing was switched; forget the session.
		if derr := m.store.Delete(); derr != nil {
			m.log.WithError(derr).Warn("failed to clean up session after create failure")
		}
		return nil, fmt.Errorf("failed to create local cluster %s: %w", m.clusterName, err)
	}

	sess.ContextName = m.driver.ContextName(m.clusterName)
	if err := SetCurrentContext(m.kubeconfig, sess.ContextName); err != nil {
		return nil, err
	}

	sess.State = StateActive
	if err := m.store.Save(sess); err != nil {
		return nil, err
	}

	metrics.ActiveSessions.Inc()
	m.log.WithField("context", sess.ContextName).Info("local cluster active")
	return sess, nil
}

// Down tears down the local cluster and restores the context stored at Up
// time — the stored value, not whatever is current now. Calling Down with
// no session is an error.
func (m *Manager) Down(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.store.Load()
	if err != nil {
		return err
	}
	if sess == nil || sess.State == StateAbsent {
		return errdefs.NotFound("no local cluster session; run `skylift local up` first")
	}

	sess.State = StateTearingDown
	if err := m.store.Save(sess); err != nil {
		return err
	}

	m.log.WithField("cluster", sess.ClusterName).Info("deleting local cluster")

	if err := m.driver.Delete(ctx, sess.ClusterName); err != nil {
		// Teardown failed; the cluster may still exist, so keep the
		// session (and the stored prior context) for another Down.
		sess.State = StateActive
		if serr := m.store.Save(sess); serr != nil {
			m.log.WithError(serr).Warn("failed to restore session state after delete failure")
		}
		return fmt.Errorf("failed to delete local cluster %s: %w", sess.ClusterName, err)
	}

	if err := SetCurrentContext(m.kubeconfig, sess.PriorContext); err != nil {
		return err
	}

	if err := m.store.Delete(); err != nil {
		return err
	}

	metrics.ActiveSessions.Dec()
	m.log.WithField("restored_context", sess.PriorContext).Info("local cluster removed")
	return nil
}

// Status returns the stored session, or nil when none exists.
func (m *Manager) Status() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Load()
}
