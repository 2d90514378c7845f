package lifecycle

import (
	"context"
	"fmt"
	"os/exec"
)

// KindDriver drives a local kind cluster through the kind CLI, writing its
// context into the managed kubeconfig.
type KindDriver struct {
	Kubeconfig string
}

// NewKindDriver creates a driver writing contexts into the kubeconfig at
// the given path.
func NewKindDriver(kubeconfig string) *KindDriver {
	return &KindDriver{Kubeconfig: kubeconfig}
}

// Create runs `kind create cluster`.
func (d *KindDriver) Create(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "kind", "create", "cluster",
		"--name", name,
		"--kubeconfig", d.Kubeconfig,
		"--wait", "120s",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("kind create cluster: %w\n%s", err, out)
	}
	return nil
}

// Delete runs `kind delete cluster`.
func (d *KindDriver) Delete(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "kind", "delete", "cluster",
		"--name", name,
		"--kubeconfig", d.Kubeconfig,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("kind delete cluster: %w\n%s", err, out)
	}
	return nil
}

// ContextName returns the context kind registers for a cluster name.
func (d *KindDriver) ContextName(name string) string {
	return "kind-" + name
}
