package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"skylift/internal/errdefs"
)

// fakeDriver records create/delete calls without running anything.
type fakeDriver struct {
	created   []string
	deleted   []string
	createErr error
	deleteErr error
}

func (d *fakeDriver) Create(ctx context.Context, name string) error {
	if d.createErr != nil {
		return d.createErr
	}
	d.created = append(d.created, name)
	return nil
}

func (d *fakeDriver) Delete(ctx context.Context, name string) error {
	if d.deleteErr != nil {
		return d.deleteErr
	}
	d.deleted = append(d.deleted, name)
	return nil
}

func (d *fakeDriver) ContextName(name string) string { return "kind-" + name }

// writeKubeconfig seeds a kubeconfig file whose current-context is name.
// An empty name leaves the pointer unset.
func writeKubeconfig(t *testing.T, path, name string) {
	t.Helper()
	config := clientcmdapi.NewConfig()
	if name != "" {
		config.Contexts[name] = clientcmdapi.NewContext()
		config.CurrentContext = name
	}
	require.NoError(t, clientcmd.WriteToFile(*config, path))
}

func newTestManager(t *testing.T, priorContext string) (*Manager, *fakeDriver, string) {
	t.Helper()
	dir := t.TempDir()
	kubeconfig := filepath.Join(dir, "kubeconfig")
	writeKubeconfig(t, kubeconfig, priorContext)

	driver := &fakeDriver{}
	store := NewSessionStore(filepath.Join(dir, "state"))
	return NewManager(kubeconfig, driver, store, nil), driver, kubeconfig
}

func TestUpThenDownRestoresContext(t *testing.T) {
	for _, prior := range []string{"gke_my-project_us-central1_cluster", ""} {
		t.Run("prior="+prior, func(t *testing.T) {
			m, driver, kubeconfig := newTestManager(t, prior)
			ctx := context.Background()

			sess, err := m.Up(ctx)
			require.NoError(t, err)
			assert.Equal(t, StateActive, sess.State)
			assert.Equal(t, prior, sess.PriorContext)
			assert.Equal(t, []string{DefaultClusterName}, driver.created)

			current, err := CurrentContext(kubeconfig)
			require.NoError(t, err)
			assert.Equal(t, "kind-"+DefaultClusterName, current)

			require.NoError(t, m.Down(ctx))

			current, err = CurrentContext(kubeconfig)
			require.NoError(t, err)
			assert.Equal(t, prior, current, "down must restore the exact pre-up context")
		})
	}
}

func TestDownRestoresStoredContextNotCurrent(t *testing.T) {
	m, _, kubeconfig := newTestManager(t, "original-context")
	ctx := context.Background()

	_, err := m.Up(ctx)
	require.NoError(t, err)

	// Something else switches the context while the session is active.
	require.NoError(t, SetCurrentContext(kubeconfig, "some-other-context"))

	require.NoError(t, m.Down(ctx))

	current, err := CurrentContext(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "original-context", current,
		"restoration target is the stored value, not whatever is current")
}

func TestDoubleUpFails(t *testing.T) {
	m, driver, _ := newTestManager(t, "ctx")
	ctx := context.Background()

	_, err := m.Up(ctx)
	require.NoError(t, err)

	_, err = m.Up(ctx)
	require.Error(t, err)
	assert.True(t, errdefs.IsAlreadyExists(err))
	assert.Len(t, driver.created, 1, "second up must not create another cluster")
}

func TestDownWithoutUpFails(t *testing.T) {
	m, driver, _ := newTestManager(t, "ctx")

	err := m.Down(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
	assert.Empty(t, driver.deleted)
}

func TestDoubleDownFails(t *testing.T) {
	m, _, _ := newTestManager(t, "ctx")
	ctx := context.Background()

	_, err := m.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Down(ctx))

	err = m.Down(ctx)
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestUpCreateFailureLeavesContextUntouched(t *testing.T) {
	m, driver, kubeconfig := newTestManager(t, "ctx")
	driver.createErr = errors.New("docker not running")

	_, err := m.Up(context.Background())
	require.Error(t, err)

	current, err := CurrentContext(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "ctx", current, "failed up must not switch the context")

	// The failed attempt left no session behind, so up can be retried.
	driver.createErr = nil
	_, err = m.Up(context.Background())
	require.NoError(t, err)
}

func TestDownDeleteFailureKeepsSession(t *testing.T) {
	m, driver, kubeconfig := newTestManager(t, "ctx")
	ctx := context.Background()

	_, err := m.Up(ctx)
	require.NoError(t, err)

	driver.deleteErr = errors.New("kind delete failed")
	require.Error(t, m.Down(ctx))

	// Context is not restored while the cluster may still exist.
	current, err := CurrentContext(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "kind-"+DefaultClusterName, current)

	// A later down succeeds and restores.
	driver.deleteErr = nil
	require.NoError(t, m.Down(ctx))
	current, err = CurrentContext(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "ctx", current)
}

func TestSessionSurvivesManagerRestart(t *testing.T) {
	dir := t.TempDir()
	kubeconfig := filepath.Join(dir, "kubeconfig")
	writeKubeconfig(t, kubeconfig, "ctx")
	stateDir := filepath.Join(dir, "state")

	driver := &fakeDriver{}
	m1 := NewManager(kubeconfig, driver, NewSessionStore(stateDir), nil)
	_, err := m1.Up(context.Background())
	require.NoError(t, err)

	// A fresh manager (new CLI invocation) sees the same session.
	m2 := NewManager(kubeconfig, driver, NewSessionStore(stateDir), nil)
	sess, err := m2.Status()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, StateActive, sess.State)
	assert.Equal(t, "ctx", sess.PriorContext)

	require.NoError(t, m2.Down(context.Background()))

	current, err := CurrentContext(kubeconfig)
	require.NoError(t, err)
	assert.Equal(t, "ctx", current)
}

func TestCurrentContextMissingFile(t *testing.T) {
	current, err := CurrentContext(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, current)
}
