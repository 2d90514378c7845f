package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := New(DefaultOffers())

	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}

	for _, provider := range []string{"kubernetes", "aws", "gcp", "azure", "ibm", "lambda"} {
		if len(c.OffersFor(provider)) == 0 {
			t.Errorf("no default offers for %s", provider)
		}
	}

	// Kubernetes offers are carved from an already-paid-for cluster.
	for _, o := range c.OffersFor("kubernetes") {
		if o.HourlyCost != 0 {
			t.Errorf("kubernetes offer %s has nonzero cost %.4f", o, o.HourlyCost)
		}
	}

	if got := c.OffersFor("no-such-provider"); len(got) != 0 {
		t.Errorf("unknown provider returned %d offers", len(got))
	}
}

func TestProvidersPreserveOrder(t *testing.T) {
	c := New([]Offer{
		{Provider: "kubernetes", InstanceType: "2CPU--2GB", VCPUs: 2, MemoryGB: 2},
		{Provider: "aws", InstanceType: "m6i.large", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.096},
		{Provider: "kubernetes", InstanceType: "4CPU--8GB", VCPUs: 4, MemoryGB: 8},
	})

	want := []string{"kubernetes", "aws"}
	got := c.Providers()
	if len(got) != len(want) {
		t.Fatalf("Providers() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Providers()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if n := len(c.OffersFor("kubernetes")); n != 2 {
		t.Errorf("kubernetes has %d offers, want 2", n)
	}
}

func TestLoadWithoutOverlay(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load without overlay: %v", err)
	}
	if c.Len() != len(DefaultOffers()) {
		t.Errorf("catalog has %d offers, want %d defaults", c.Len(), len(DefaultOffers()))
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	overlay := `version: "1.0"
offers:
  - provider: onprem
    instanceType: rack-1
    vcpus: 64
    memoryGB: 512
    hourlyCost: 0.0
  - provider: lambda
    instanceType: gpu_1x_h100
    vcpus: 26
    memoryGB: 200
    accelerator:
      name: H100
      count: 1
    hourlyCost: 2.49
`
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(overlay), 0644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load with overlay: %v", err)
	}

	onprem := c.OffersFor("onprem")
	if len(onprem) != 1 || onprem[0].VCPUs != 64 {
		t.Errorf("overlay provider not loaded: %+v", onprem)
	}

	lambda := c.OffersFor("lambda")
	last := lambda[len(lambda)-1]
	if last.InstanceType != "gpu_1x_h100" || last.Accelerator == nil || last.Accelerator.Name != "H100" {
		t.Errorf("overlay offer not appended to existing provider: %+v", last)
	}
}

func TestLoadRejectsBadOverlay(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad yaml", "offers: ["},
		{"bad version", "version: \"2.0\"\noffers: []\n"},
		{"missing instance type", "offers:\n  - provider: aws\n    vcpus: 2\n"},
		{"zero vcpus", "offers:\n  - provider: aws\n    instanceType: t3.nano\n    vcpus: 0\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(tc.content), 0644); err != nil {
				t.Fatalf("write overlay: %v", err)
			}
			if _, err := Load(dir); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
