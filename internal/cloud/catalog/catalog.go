// Package catalog holds the per-provider instance offer tables used by the
// feasibility filter and optimizer. Offers are value types: sourced from the
// built-in tables or a user overlay file, never mutated after load.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Accelerator describes an accelerator attached to an offer.
type Accelerator struct {
	Name  string  `yaml:"name"`
	Count int     `yaml:"count"`
}

// Offer is a concrete instance-type/price tuple available from a provider.
type Offer struct {
	Provider     string       `yaml:"provider"`
	InstanceType string       `yaml:"instanceType"`
	VCPUs        float64      `yaml:"vcpus"`
	MemoryGB     float64      `yaml:"memoryGB"`
	Accelerator  *Accelerator `yaml:"accelerator,omitempty"`
	Region       string       `yaml:"region,omitempty"`
	HourlyCost   float64      `yaml:"hourlyCost"`
}

// String returns the provider-qualified instance type, used in errors and logs.
func (o Offer) String() string {
	return fmt.Sprintf("%s/%s", o.Provider, o.InstanceType)
}

// Catalog maps provider names to their offer tables. Offer order within a
// provider is preserved from the source table; the filter relies on it.
type Catalog struct {
	offers map[string][]Offer
	order  []string
}

// New builds a catalog from the given offers, grouping them by provider.
func New(offers []Offer) *Catalog {
	c := &Catalog{offers: make(map[string][]Offer)}
	for _, o := range offers {
		if _, seen := c.offers[o.Provider]; !seen {
			c.order = append(c.order, o.Provider)
		}
		c.offers[o.Provider] = append(c.offers[o.Provider], o)
	}
	return c
}

// OffersFor returns the offer table for a provider, in catalog order.
// Unknown providers get an empty table, not an error.
func (c *Catalog) OffersFor(provider string) []Offer {
	return c.offers[provider]
}

// Providers returns the provider names present in the catalog, in the order
// their first offer appeared.
func (c *Catalog) Providers() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the total number of offers across all providers.
func (c *Catalog) Len() int {
	n := 0
	for _, offers := range c.offers {
		n += len(offers)
	}
	return n
}

// overlayFile is the shape of ~/.skylift/catalog.yaml.
type overlayFile struct {
	Version string  `yaml:"version"`
	Offers  []Offer `yaml:"offers"`
}

// Load returns the built-in catalog, extended by the user overlay at
// dir/catalog.yaml when present. A missing overlay is not an error; a
// malformed one is.
func Load(dir string) (*Catalog, error) {
	offers := DefaultOffers()

	overlayPath := filepath.Join(dir, "catalog.yaml")
	data, err := os.ReadFile(overlayPath)
	if os.IsNotExist(err) {
		return New(offers), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog overlay: %w", err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse catalog overlay: %w", err)
	}
	if overlay.Version != "" && overlay.Version != "1.0" {
		return nil, fmt.Errorf("unsupported catalog version: %s", overlay.Version)
	}
	for i, o := range overlay.Offers {
		if o.Provider == "" || o.InstanceType == "" {
			return nil, fmt.Errorf("catalog overlay offer %d: provider and instanceType are required", i)
		}
		if o.VCPUs <= 0 {
			return nil, fmt.Errorf("catalog overlay offer %s: vcpus must be positive", o)
		}
	}

	return New(append(offers, overlay.Offers...)), nil
}
