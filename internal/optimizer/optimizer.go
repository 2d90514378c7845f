package optimizer

import (
	"sort"

	"skylift/internal/errdefs"
)

// Plan is the outcome of ranking a feasible set: the full ranked sequence
// for display, and the chosen (cheapest) candidate.
type Plan struct {
	Ranked []Candidate
	Chosen Candidate
}

// Priority maps a provider name to its tie-break rank. The registry's
// Priority method satisfies this.
type Priority func(providerName string) int

// Rank sorts the feasible candidates by hourly cost ascending; equal-cost
// candidates keep provider registration order, so identical inputs always
// produce identical output. The first element is marked chosen.
//
// An empty feasible set fails with a no-feasible-resource error naming the
// request; it is never silently defaulted.
func Rank(req Request, candidates []Candidate, priority Priority) (*Plan, error) {
	feasible := Feasible(candidates)
	if len(feasible) == 0 {
		return nil, errdefs.NoFeasibleResourcef("no cloud can satisfy the request (%s)", req)
	}

	ranked := make([]Candidate, len(feasible))
	copy(ranked, feasible)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Offer.HourlyCost != ranked[j].Offer.HourlyCost {
			return ranked[i].Offer.HourlyCost < ranked[j].Offer.HourlyCost
		}
		return priority(ranked[i].Offer.Provider) < priority(ranked[j].Offer.Provider)
	})

	ranked[0].Chosen = true

	return &Plan{
		Ranked: ranked,
		Chosen: ranked[0],
	}, nil
}
