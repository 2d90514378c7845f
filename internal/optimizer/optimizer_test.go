package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skylift/internal/cloud/catalog"
	"skylift/internal/cloud/provider"
	"skylift/internal/cloud/registry"
	"skylift/internal/errdefs"
)

func buildRegistry(t *testing.T, providers ...provider.Provider) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, p := range providers {
		require.NoError(t, r.Register(p))
	}
	return r
}

func TestFilterExactThresholds(t *testing.T) {
	offers := []catalog.Offer{
		{Provider: "test", InstanceType: "tiny", VCPUs: 1, MemoryGB: 2, HourlyCost: 0.01},
		{Provider: "test", InstanceType: "exact", VCPUs: 2, MemoryGB: 4, HourlyCost: 0.02},
		{Provider: "test", InstanceType: "big", VCPUs: 8, MemoryGB: 32, HourlyCost: 0.08},
		{Provider: "test", InstanceType: "cpu-rich-mem-poor", VCPUs: 16, MemoryGB: 2, HourlyCost: 0.04},
	}
	p := provider.NewFake("test", offers)
	req := Request{MinVCPUs: 2, MinMemoryGB: 4}

	candidates, err := Filter(context.Background(), req, []provider.Provider{p})
	require.NoError(t, err)
	require.Len(t, candidates, len(offers), "every offer appears exactly once")

	// offer in feasible output iff it meets every threshold
	want := map[string]bool{
		"tiny":              false, // fails both bounds
		"exact":             true,  // bounds are inclusive
		"big":               true,
		"cpu-rich-mem-poor": false, // memory below bound
	}
	for _, c := range candidates {
		assert.Equal(t, want[c.Offer.InstanceType], c.Satisfies, "offer %s", c.Offer.InstanceType)
		assert.False(t, c.Chosen, "filter must not choose")
	}
}

func TestFilterAcceleratorMatching(t *testing.T) {
	offers := []catalog.Offer{
		{Provider: "test", InstanceType: "cpu-only", VCPUs: 8, MemoryGB: 32, HourlyCost: 0.1},
		{Provider: "test", InstanceType: "one-a10", VCPUs: 8, MemoryGB: 32,
			Accelerator: &catalog.Accelerator{Name: "A10", Count: 1}, HourlyCost: 0.8},
		{Provider: "test", InstanceType: "four-a10", VCPUs: 16, MemoryGB: 64,
			Accelerator: &catalog.Accelerator{Name: "A10", Count: 4}, HourlyCost: 3.0},
		{Provider: "test", InstanceType: "one-v100", VCPUs: 8, MemoryGB: 32,
			Accelerator: &catalog.Accelerator{Name: "V100", Count: 1}, HourlyCost: 2.5},
	}
	p := provider.NewFake("test", offers)
	req := Request{MinVCPUs: 2, Accelerator: &AcceleratorSpec{Name: "A10", Count: 2}}

	candidates, err := Filter(context.Background(), req, []provider.Provider{p})
	require.NoError(t, err)

	feasible := Feasible(candidates)
	require.Len(t, feasible, 1)
	assert.Equal(t, "four-a10", feasible[0].Offer.InstanceType)
}

func TestFilterAcceleratorGate(t *testing.T) {
	offers := []catalog.Offer{
		{Provider: "kubernetes", InstanceType: "4CPU--16GB--1T4", VCPUs: 4, MemoryGB: 16,
			Accelerator: &catalog.Accelerator{Name: "T4", Count: 1}, HourlyCost: 0},
	}
	req := Request{Accelerator: &AcceleratorSpec{Name: "T4", Count: 1}}

	// No labelled node: the offer exists but is not schedulable.
	unlabelled := provider.NewFake("kubernetes", offers)
	candidates, err := Filter(context.Background(), req, []provider.Provider{unlabelled})
	require.NoError(t, err)
	assert.Empty(t, Feasible(candidates), "accelerator offer admitted without a labelled node")

	// Labelled node: the same offer becomes feasible.
	labelled := provider.NewFake("kubernetes", offers)
	labelled.AcceleratorNodes = []string{"T4"}
	candidates, err = Filter(context.Background(), req, []provider.Provider{labelled})
	require.NoError(t, err)
	assert.Len(t, Feasible(candidates), 1)
}

func TestFilterEmptyFeasibleSetIsNotAnError(t *testing.T) {
	p := provider.NewFake("test", []catalog.Offer{
		{Provider: "test", InstanceType: "tiny", VCPUs: 1, MemoryGB: 1, HourlyCost: 0.01},
	})

	candidates, err := Filter(context.Background(), Request{MinVCPUs: 64}, []provider.Provider{p})
	require.NoError(t, err)
	assert.Empty(t, Feasible(candidates))
}

func TestRankCheapestWinsWithRegistryTieBreak(t *testing.T) {
	k8s := provider.NewFake("kubernetes", []catalog.Offer{
		{Provider: "kubernetes", InstanceType: "2CPU--2GB", VCPUs: 2, MemoryGB: 2, HourlyCost: 0},
	})
	aws := provider.NewFake("aws", []catalog.Offer{
		{Provider: "aws", InstanceType: "m6i.large", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.10},
	})
	azure := provider.NewFake("azure", []catalog.Offer{
		{Provider: "azure", InstanceType: "Standard_D2s_v5", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.10},
	})
	reg := buildRegistry(t, k8s, aws, azure)
	req := Request{MinVCPUs: 2}

	candidates, err := Filter(context.Background(), req, reg.List())
	require.NoError(t, err)

	plan, err := Rank(req, candidates, reg.Priority)
	require.NoError(t, err)

	gotOrder := []string{}
	for _, c := range plan.Ranked {
		gotOrder = append(gotOrder, c.Offer.Provider)
	}
	// AWS before Azure: equal cost resolves by registration order.
	assert.Equal(t, []string{"kubernetes", "aws", "azure"}, gotOrder)
	assert.Equal(t, "kubernetes", plan.Chosen.Offer.Provider)
	assert.True(t, plan.Ranked[0].Chosen)
	assert.False(t, plan.Ranked[1].Chosen)
}

func TestRankDeterministic(t *testing.T) {
	reg := buildRegistry(t,
		provider.NewFake("aws", []catalog.Offer{
			{Provider: "aws", InstanceType: "a", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.10},
			{Provider: "aws", InstanceType: "b", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.10},
		}),
		provider.NewFake("gcp", []catalog.Offer{
			{Provider: "gcp", InstanceType: "c", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.10},
		}),
	)
	req := Request{MinVCPUs: 2}

	var first []string
	for run := 0; run < 5; run++ {
		candidates, err := Filter(context.Background(), req, reg.List())
		require.NoError(t, err)
		plan, err := Rank(req, candidates, reg.Priority)
		require.NoError(t, err)

		var order []string
		for _, c := range plan.Ranked {
			order = append(order, c.Offer.String())
		}
		if first == nil {
			first = order
			continue
		}
		require.Equal(t, first, order, "run %d ordering differs", run)
	}
	// Stable sort keeps catalog order within a provider.
	assert.Equal(t, []string{"aws/a", "aws/b", "gcp/c"}, first)
}

func TestRankCostAlwaysNonDecreasing(t *testing.T) {
	reg := buildRegistry(t,
		provider.NewFake("kubernetes", nil),
		provider.NewFake("aws", nil),
		provider.NewFake("gcp", nil),
		provider.NewFake("azure", nil),
		provider.NewFake("ibm", nil),
		provider.NewFake("lambda", nil),
	)

	candidates := []Candidate{}
	for _, o := range catalog.DefaultOffers() {
		candidates = append(candidates, Candidate{Offer: o, Satisfies: true})
	}

	plan, err := Rank(Request{}, candidates, reg.Priority)
	require.NoError(t, err)
	for i := 1; i < len(plan.Ranked); i++ {
		assert.LessOrEqual(t, plan.Ranked[i-1].Offer.HourlyCost, plan.Ranked[i].Offer.HourlyCost,
			"ranked[%d] cheaper than ranked[%d]", i, i-1)
	}
}

func TestRankEmptyFeasibleSetFails(t *testing.T) {
	reg := buildRegistry(t, provider.NewFake("aws", nil))
	req := Request{MinVCPUs: 128}

	plan, err := Rank(req, nil, reg.Priority)
	assert.Nil(t, plan)
	require.Error(t, err)
	assert.True(t, errdefs.IsNoFeasibleResource(err))
	assert.Contains(t, err.Error(), "cpus=128+", "error must name the request being evaluated")
}

func TestAcceleratorOnlyOnOneProvider(t *testing.T) {
	// Only Lambda offers an A10; it must win even at the highest cost.
	reg := buildRegistry(t,
		provider.NewFake("kubernetes", []catalog.Offer{
			{Provider: "kubernetes", InstanceType: "2CPU--2GB", VCPUs: 2, MemoryGB: 2, HourlyCost: 0},
		}),
		provider.NewFake("aws", []catalog.Offer{
			{Provider: "aws", InstanceType: "m6i.large", VCPUs: 2, MemoryGB: 8, HourlyCost: 0.10},
		}),
		provider.NewFake("lambda", []catalog.Offer{
			{Provider: "lambda", InstanceType: "gpu_1x_a10", VCPUs: 30, MemoryGB: 200,
				Accelerator: &catalog.Accelerator{Name: "A10", Count: 1}, HourlyCost: 0.75},
		}),
	)
	req := Request{MinVCPUs: 2, Accelerator: &AcceleratorSpec{Name: "A10", Count: 1}}

	candidates, err := Filter(context.Background(), req, reg.List())
	require.NoError(t, err)

	plan, err := Rank(req, candidates, reg.Priority)
	require.NoError(t, err)
	require.Len(t, plan.Ranked, 1)
	assert.Equal(t, "lambda/gpu_1x_a10", plan.Chosen.Offer.String())
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"2", 2, false},
		{"2+", 2, false},
		{"0.5", 0.5, false},
		{" 4+ ", 4, false},
		{"", 0, true},
		{"+", 0, true},
		{"-1", 0, true},
		{"two", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseQuantity(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseAccelerator(t *testing.T) {
	spec, err := ParseAccelerator("A10")
	require.NoError(t, err)
	assert.Equal(t, &AcceleratorSpec{Name: "A10", Count: 1}, spec)

	spec, err = ParseAccelerator("V100:4")
	require.NoError(t, err)
	assert.Equal(t, &AcceleratorSpec{Name: "V100", Count: 4}, spec)

	for _, bad := range []string{"", ":2", "A10:0", "A10:-1", "A10:x"} {
		_, err := ParseAccelerator(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
