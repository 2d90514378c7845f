package scheduler

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"skylift/internal/cloud/catalog"
)

// AcceleratorLabel marks nodes whose accelerators have been registered by
// the labelling tool. Accelerator pods only schedule onto labelled nodes.
const AcceleratorLabel = "skylift.io/accelerator"

// GKEAcceleratorLabel is the provider-native equivalent accepted on GKE
// nodes, where the label is applied automatically.
const GKEAcceleratorLabel = "cloud.google.com/gke-accelerator"

// gpuResourceName is the extended resource requested for accelerator offers.
const gpuResourceName = "nvidia.com/gpu"

// PodConfig contains configuration for building a runner pod spec.
type PodConfig struct {
	Name        string
	Namespace   string
	ClusterName string
	Image       string
	Offer       catalog.Offer
}

// PodSpecBuilder builds Kubernetes pod specifications for runner instances
// sized to a catalog offer.
type PodSpecBuilder struct {
	config PodConfig
}

// NewPodSpecBuilder creates a new PodSpecBuilder.
func NewPodSpecBuilder(config PodConfig) *PodSpecBuilder {
	return &PodSpecBuilder{
		config: config,
	}
}

// Build creates a Kubernetes Pod sized to the offer.
func (b *PodSpecBuilder) Build() *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      b.config.Name,
			Namespace: b.config.Namespace,
			Labels: map[string]string{
				"app":           "skylift-runner",
				"cluster":       b.config.ClusterName,
				"id":            b.config.Name,
				"instance-type": b.config.Offer.InstanceType,
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Volumes:       b.buildVolumes(),
			Containers:    b.buildContainers(),
		},
	}

	if b.config.Offer.Accelerator != nil {
		pod.Spec.NodeSelector = map[string]string{
			AcceleratorLabel: NodeLabelValue(b.config.Offer.Accelerator.Name),
		}
	}

	return pod
}

// buildVolumes creates the volume specifications. The workspace volume holds
// the synced workdir; cache is reused across runs on the same node.
func (b *PodSpecBuilder) buildVolumes() []corev1.Volume {
	return []corev1.Volume{
		{
			Name: "workspace",
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			},
		},
		{
			Name: "cache",
			VolumeSource: corev1.VolumeSource{
				EmptyDir: &corev1.EmptyDirVolumeSource{},
			},
		},
	}
}

// buildContainers creates the runner container.
func (b *PodSpecBuilder) buildContainers() []corev1.Container {
	pullPolicy := corev1.PullIfNotPresent
	if strings.Contains(b.config.Image, ":dev") || strings.Contains(b.config.Image, ":e2e") {
		pullPolicy = corev1.PullNever
	}

	return []corev1.Container{
		{
			Name:            "runner",
			Image:           b.config.Image,
			ImagePullPolicy: pullPolicy,
			Resources:       b.buildResourceRequirements(),
			VolumeMounts: []corev1.VolumeMount{
				{Name: "workspace", MountPath: "/workspace"},
				{Name: "cache", MountPath: "/cache"},
			},
			Env: []corev1.EnvVar{
				{Name: "SKYLIFT_CLUSTER", Value: b.config.ClusterName},
				{Name: "SKYLIFT_INSTANCE_TYPE", Value: b.config.Offer.InstanceType},
			},
			WorkingDir: "/workspace",
		},
	}
}

// buildResourceRequirements sizes the runner container to the offer.
func (b *PodSpecBuilder) buildResourceRequirements() corev1.ResourceRequirements {
	requests := corev1.ResourceList{
		corev1.ResourceCPU:    resource.MustParse(formatQuantity(b.config.Offer.VCPUs)),
		corev1.ResourceMemory: resource.MustParse(formatQuantity(b.config.Offer.MemoryGB) + "Gi"),
	}
	limits := corev1.ResourceList{}

	if acc := b.config.Offer.Accelerator; acc != nil {
		gpus := resource.MustParse(fmt.Sprintf("%d", acc.Count))
		requests[gpuResourceName] = gpus
		limits[gpuResourceName] = gpus
	}

	return corev1.ResourceRequirements{
		Requests: requests,
		Limits:   limits,
	}
}

// NodeLabelValue is the canonical label value for an accelerator name,
// matching what the node labelling tool writes (lowercase, e.g. "t4").
func NodeLabelValue(acceleratorName string) string {
	return strings.ToLower(acceleratorName)
}

// formatQuantity renders a float resource amount without a trailing ".0"
// for whole numbers, since resource.MustParse rejects "2.0Gi" styles poorly
// formatted elsewhere.
func formatQuantity(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
