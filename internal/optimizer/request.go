// Package optimizer filters the provider catalogs against a resource request
// and ranks the feasible candidates by hourly cost. Both stages are pure:
// they read only immutable catalog and registry data and are safe to run
// concurrently for different requests.
package optimizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AcceleratorSpec is a requested accelerator name and count.
type AcceleratorSpec struct {
	Name  string
	Count int
}

func (a AcceleratorSpec) String() string {
	return fmt.Sprintf("%s:%d", a.Name, a.Count)
}

// Request holds a task's resource lower bounds. The objective is fixed:
// minimize hourly cost.
type Request struct {
	MinVCPUs    float64
	MinMemoryGB float64
	Accelerator *AcceleratorSpec

	// ProvisionTimeout overrides the chosen provider's default readiness
	// timeout. Zero keeps the default. Autoscaling clusters need this
	// raised, since scale-up routinely outlasts the default.
	ProvisionTimeout time.Duration
}

func (r Request) String() string {
	parts := []string{}
	if r.MinVCPUs > 0 {
		parts = append(parts, fmt.Sprintf("cpus=%g+", r.MinVCPUs))
	}
	if r.MinMemoryGB > 0 {
		parts = append(parts, fmt.Sprintf("memory=%gGB+", r.MinMemoryGB))
	}
	if r.Accelerator != nil {
		parts = append(parts, "accelerator="+r.Accelerator.String())
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ", ")
}

// ParseQuantity parses a CLI resource bound like "2" or "2+". Both forms
// mean a lower bound; the trailing "+" is accepted for symmetry with the
// documented syntax.
func ParseQuantity(s string) (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), "+")
	if trimmed == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("quantity must be positive: %q", s)
	}
	return v, nil
}

// ParseAccelerator parses a CLI accelerator spec like "A10" or "A10:2".
// A bare name means count 1.
func ParseAccelerator(s string) (*AcceleratorSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty accelerator spec")
	}

	name, countStr, found := strings.Cut(s, ":")
	if name == "" {
		return nil, fmt.Errorf("invalid accelerator spec %q", s)
	}

	count := 1
	if found {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil || count < 1 {
			return nil, fmt.Errorf("invalid accelerator count in %q", s)
		}
	}

	return &AcceleratorSpec{Name: name, Count: count}, nil
}
