package provider

import (
	"context"
	"os"
	"time"

	"skylift/internal/cloud/catalog"
	"skylift/internal/errdefs"
)

// Static is a catalog-only provider for clouds whose SDK integration is not
// wired in this deployment. It can list and price offers, so the optimizer
// ranks it normally, but provisioning requires credentials it does not have.
type Static struct {
	name     string
	caps     Capabilities
	timeout  time.Duration
	catalog  *catalog.Catalog
	credEnvs []string
}

func (s *Static) Name() string                          { return s.name }
func (s *Static) Capabilities() Capabilities            { return s.caps }
func (s *Static) DefaultProvisionTimeout() time.Duration { return s.timeout }
func (s *Static) RunnerImage() string                   { return "skylift/runner:latest" }

func (s *Static) Offers() []catalog.Offer {
	return s.catalog.OffersFor(s.name)
}

// CheckAccess reports whether any of the provider's credential environment
// variables are set. It does not validate them against the cloud API.
func (s *Static) CheckAccess(ctx context.Context) error {
	for _, env := range s.credEnvs {
		if os.Getenv(env) != "" {
			return nil
		}
	}
	return errdefs.ProviderAPIf("%s: credentials not configured (set one of %v)", s.name, s.credEnvs)
}

func (s *Static) Provision(ctx context.Context, spec ProvisionSpec) (*Instance, error) {
	return nil, errdefs.ProviderAPIf("%s: provisioning %s requires the %s SDK integration, which is not configured",
		s.name, spec.Offer, s.name)
}

func (s *Static) Status(ctx context.Context, id string) (*Instance, error) {
	return nil, errdefs.NotFoundf("%s: no instance %s", s.name, id)
}

func (s *Static) Terminate(ctx context.Context, id string) error {
	return errdefs.NotFoundf("%s: no instance %s", s.name, id)
}

// NewAWS returns the catalog-backed AWS provider.
func NewAWS(cat *catalog.Catalog) *Static {
	return &Static{
		name:     "aws",
		caps:     Capabilities{Accelerators: true, MultiNode: true, Autoscale: true},
		timeout:  10 * time.Minute,
		catalog:  cat,
		credEnvs: []string{"AWS_ACCESS_KEY_ID", "AWS_PROFILE"},
	}
}

// NewGCP returns the catalog-backed GCP provider.
func NewGCP(cat *catalog.Catalog) *Static {
	return &Static{
		name:     "gcp",
		caps:     Capabilities{Accelerators: true, MultiNode: true, Autoscale: true},
		timeout:  10 * time.Minute,
		catalog:  cat,
		credEnvs: []string{"GOOGLE_APPLICATION_CREDENTIALS", "CLOUDSDK_CONFIG"},
	}
}

// NewAzure returns the catalog-backed Azure provider.
func NewAzure(cat *catalog.Catalog) *Static {
	return &Static{
		name:     "azure",
		caps:     Capabilities{Accelerators: true, MultiNode: true, Autoscale: true},
		timeout:  15 * time.Minute,
		catalog:  cat,
		credEnvs: []string{"AZURE_CLIENT_ID", "AZURE_CONFIG_DIR"},
	}
}

// NewIBM returns the catalog-backed IBM Cloud provider.
func NewIBM(cat *catalog.Catalog) *Static {
	return &Static{
		name:     "ibm",
		caps:     Capabilities{Accelerators: true, MultiNode: true},
		timeout:  15 * time.Minute,
		catalog:  cat,
		credEnvs: []string{"IBMCLOUD_API_KEY"},
	}
}

// NewLambda returns the catalog-backed Lambda Cloud provider.
func NewLambda(cat *catalog.Catalog) *Static {
	return &Static{
		name:     "lambda",
		caps:     Capabilities{Accelerators: true},
		timeout:  10 * time.Minute,
		catalog:  cat,
		credEnvs: []string{"LAMBDA_API_KEY"},
	}
}
