package optimizer

import (
	"context"
	"fmt"
	"strings"

	"skylift/internal/cloud/catalog"
	"skylift/internal/cloud/provider"
)

// Candidate is an offer evaluated against a request. Derived per
// optimization run, never persisted.
type Candidate struct {
	Offer     catalog.Offer
	Satisfies bool
	Chosen    bool
}

// Filter evaluates every offer of every provider against the request.
// Output order is provider order then catalog order, and every offer appears
// exactly once, flagged feasible or not. An empty feasible set is a
// legitimate result here; only the optimizer treats it as an error.
//
// Providers implementing AcceleratorGate additionally require a labelled
// node for the requested accelerator before their accelerator offers are
// admitted.
func Filter(ctx context.Context, req Request, providers []provider.Provider) ([]Candidate, error) {
	var candidates []Candidate

	for _, p := range providers {
		gateOpen := true
		if req.Accelerator != nil {
			if gate, ok := p.(provider.AcceleratorGate); ok {
				open, err := gate.HasAcceleratorNode(ctx, req.Accelerator.Name)
				if err != nil {
					return nil, fmt.Errorf("provider %s: accelerator gate for %s: %w",
						p.Name(), req.Accelerator.Name, err)
				}
				gateOpen = open
			}
		}

		for _, offer := range p.Offers() {
			candidates = append(candidates, Candidate{
				Offer:     offer,
				Satisfies: gateOpen && meets(offer, req),
			})
		}
	}

	return candidates, nil
}

// meets reports whether the offer satisfies every lower bound of the request.
func meets(offer catalog.Offer, req Request) bool {
	if offer.VCPUs < req.MinVCPUs {
		return false
	}
	if offer.MemoryGB < req.MinMemoryGB {
		return false
	}
	if req.Accelerator != nil {
		if offer.Accelerator == nil {
			return false
		}
		if !strings.EqualFold(offer.Accelerator.Name, req.Accelerator.Name) {
			return false
		}
		if offer.Accelerator.Count < req.Accelerator.Count {
			return false
		}
	}
	return true
}

// Feasible returns the subset of candidates that satisfy the request, in
// their original order.
func Feasible(candidates []Candidate) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Satisfies {
			out = append(out, c)
		}
	}
	return out
}
