package provider

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"skylift/internal/cloud/catalog"
	"skylift/internal/errdefs"
	"skylift/internal/scheduler"
)

const (
	kubernetesProvisionTimeout = 10 * time.Minute
	runnerNamespace            = "skylift-runners"
)

// Kubernetes implements Provider against an existing cluster reachable
// through the current kubeconfig context. The cluster's capacity is exposed
// as zero-cost catalog offers.
type Kubernetes struct {
	clientset kubernetes.Interface
	catalog   *catalog.Catalog
	namespace string
	autoscale bool
}

// NewKubernetes creates a Kubernetes provider from a kubeconfig path. An
// empty path falls back to the clientcmd defaults (KUBECONFIG, ~/.kube/config).
func NewKubernetes(kubeconfig string, cat *catalog.Catalog) (*Kubernetes, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewKubernetesWithClient(clientset, cat), nil
}

// NewKubernetesWithClient creates a Kubernetes provider around an existing
// clientset. Tests pass a fake clientset here.
func NewKubernetesWithClient(clientset kubernetes.Interface, cat *catalog.Catalog) *Kubernetes {
	return &Kubernetes{
		clientset: clientset,
		catalog:   cat,
		namespace: runnerNamespace,
	}
}

// SetAutoscale marks the cluster as autoscaling-capable. Callers provisioning
// against an autoscaling cluster should also pass a longer timeout override,
// since scale-up latency routinely exceeds the default.
func (k *Kubernetes) SetAutoscale(enabled bool) {
	k.autoscale = enabled
}

func (k *Kubernetes) Name() string { return "kubernetes" }

func (k *Kubernetes) Capabilities() Capabilities {
	return Capabilities{
		Accelerators: true,
		MultiNode:    true,
		Autoscale:    k.autoscale,
	}
}

func (k *Kubernetes) DefaultProvisionTimeout() time.Duration {
	return kubernetesProvisionTimeout
}

func (k *Kubernetes) RunnerImage() string {
	// Includes rsync and conda; workdir sync and environment setup depend
	// on both being present.
	return "skylift/runner:latest"
}

func (k *Kubernetes) Offers() []catalog.Offer {
	return k.catalog.OffersFor(k.Name())
}

// CheckAccess verifies the cluster answers with the current credentials.
func (k *Kubernetes) CheckAccess(ctx context.Context) error {
	_, err := k.clientset.CoreV1().Namespaces().Get(ctx, "default", metav1.GetOptions{})
	if err != nil {
		return errdefs.AsProviderAPI(fmt.Errorf("kubernetes: cluster unreachable: %w", err))
	}
	return nil
}

// HasAcceleratorNode reports whether any node carries the accelerator label
// (or the GKE-native equivalent) for the requested accelerator name. GPU
// nodes must be labelled by the labelling tool before they are schedulable
// targets.
func (k *Kubernetes) HasAcceleratorNode(ctx context.Context, name string) (bool, error) {
	nodes, err := k.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return false, errdefs.AsProviderAPI(fmt.Errorf("kubernetes: list nodes: %w", err))
	}

	want := scheduler.NodeLabelValue(name)
	for _, node := range nodes.Items {
		if node.Labels[scheduler.AcceleratorLabel] == want {
			return true, nil
		}
		// GKE labels accelerator nodes itself, e.g. "nvidia-tesla-t4".
		if node.Labels[scheduler.GKEAcceleratorLabel] == "nvidia-tesla-"+want {
			return true, nil
		}
	}
	return false, nil
}

// Provision creates a runner pod sized to the offer in the runner namespace.
func (k *Kubernetes) Provision(ctx context.Context, spec ProvisionSpec) (*Instance, error) {
	instanceID := fmt.Sprintf("%s-%d", spec.ClusterName, time.Now().Unix())

	builder := scheduler.NewPodSpecBuilder(scheduler.PodConfig{
		Name:        instanceID,
		Namespace:   k.namespace,
		ClusterName: spec.ClusterName,
		Image:       k.RunnerImage(),
		Offer:       spec.Offer,
	})
	pod := builder.Build()

	createdPod, err := k.clientset.CoreV1().Pods(k.namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return nil, errdefs.AsProviderAPI(fmt.Errorf("kubernetes: create pod for %s: %w", spec.Offer, err))
	}

	return &Instance{
		ID:           instanceID,
		Provider:     k.Name(),
		InstanceType: spec.Offer.InstanceType,
		Status:       podStatus(createdPod),
		CreatedAt:    createdPod.CreationTimestamp.Time,
		PodName:      createdPod.Name,
		Namespace:    createdPod.Namespace,
	}, nil
}

// Status retrieves the pod backing an instance and maps its phase.
func (k *Kubernetes) Status(ctx context.Context, id string) (*Instance, error) {
	pod, err := k.clientset.CoreV1().Pods(k.namespace).Get(ctx, id, metav1.GetOptions{})
	if err != nil {
		return nil, errdefs.AsProviderAPI(fmt.Errorf("kubernetes: get pod %s: %w", id, err))
	}

	return &Instance{
		ID:           id,
		Provider:     k.Name(),
		InstanceType: pod.Labels["instance-type"],
		Status:       podStatus(pod),
		CreatedAt:    pod.CreationTimestamp.Time,
		PodName:      pod.Name,
		Namespace:    pod.Namespace,
	}, nil
}

// Terminate deletes the pod backing an instance.
func (k *Kubernetes) Terminate(ctx context.Context, id string) error {
	deletePolicy := metav1.DeletePropagationForeground
	err := k.clientset.CoreV1().Pods(k.namespace).Delete(ctx, id, metav1.DeleteOptions{
		PropagationPolicy: &deletePolicy,
	})
	if err != nil {
		return errdefs.AsProviderAPI(fmt.Errorf("kubernetes: delete pod %s: %w", id, err))
	}
	return nil
}

// ListInstances lists all runner pods in the runner namespace.
func (k *Kubernetes) ListInstances(ctx context.Context) ([]*Instance, error) {
	pods, err := k.clientset.CoreV1().Pods(k.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app=skylift-runner",
	})
	if err != nil {
		return nil, errdefs.AsProviderAPI(fmt.Errorf("kubernetes: list pods: %w", err))
	}

	instances := make([]*Instance, 0, len(pods.Items))
	for _, pod := range pods.Items {
		instances = append(instances, &Instance{
			ID:           pod.Labels["id"],
			Provider:     k.Name(),
			InstanceType: pod.Labels["instance-type"],
			Status:       podStatus(&pod),
			CreatedAt:    pod.CreationTimestamp.Time,
			PodName:      pod.Name,
			Namespace:    pod.Namespace,
		})
	}

	return instances, nil
}

func podStatus(pod *corev1.Pod) string {
	switch pod.Status.Phase {
	case corev1.PodRunning, corev1.PodSucceeded:
		return StatusRunning
	case corev1.PodFailed:
		return StatusFailed
	default:
		return StatusPending
	}
}
