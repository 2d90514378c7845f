package provision

import (
	"context"
	"strings"
	"testing"
	"time"

	"skylift/internal/cloud/catalog"
	"skylift/internal/cloud/provider"
	"skylift/internal/errdefs"
	"skylift/internal/optimizer"
)

var testOffer = catalog.Offer{
	Provider: "fake", InstanceType: "2CPU--2GB", VCPUs: 2, MemoryGB: 2, HourlyCost: 0,
}

func testRequest(p provider.Provider) Request {
	return Request{
		ClusterName:  "sky-test",
		Provider:     p,
		Offer:        optimizer.Candidate{Offer: testOffer, Satisfies: true, Chosen: true},
		Timeout:      2 * time.Second,
		PollInterval: 10 * time.Millisecond,
	}
}

func TestProvisionReachesReady(t *testing.T) {
	fake := provider.NewFake("fake", nil)
	fake.ReadyAfter = 30 * time.Millisecond

	p := NewProvisioner(nil)
	rec, err := p.Provision(context.Background(), testRequest(fake))
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if rec.Provider != "fake" {
		t.Errorf("record provider = %s", rec.Provider)
	}
	if rec.InstanceType != "2CPU--2GB" {
		t.Errorf("record instance type = %s", rec.InstanceType)
	}
	if rec.ReadyAt.Before(rec.StartedAt) {
		t.Error("ReadyAt before StartedAt")
	}
}

func TestProvisionEventSequence(t *testing.T) {
	fake := provider.NewFake("fake", nil)

	p := NewProvisioner(nil)
	attempt, err := p.Start(context.Background(), testRequest(fake))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var states []State
	for ev := range attempt.Events() {
		states = append(states, ev.State)
	}

	want := []State{StatePending, StateRequested, StateReady}
	if len(states) != len(want) {
		t.Fatalf("events = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, states[i], want[i])
		}
	}

	if _, err := attempt.Wait(); err != nil {
		t.Errorf("Wait after ready: %v", err)
	}
}

func TestProvisionTimesOutWithoutRetry(t *testing.T) {
	fake := provider.NewFake("fake", nil)
	fake.ReadyAfter = time.Hour // never ready within the test timeout

	req := testRequest(fake)
	req.Timeout = 50 * time.Millisecond

	p := NewProvisioner(nil)
	attempt, err := p.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var states []State
	for ev := range attempt.Events() {
		states = append(states, ev.State)
	}

	rec, err := attempt.Wait()
	if rec != nil {
		t.Error("timed-out attempt produced a record")
	}
	if !errdefs.IsProvisioningTimeout(err) {
		t.Fatalf("error is not a provisioning timeout: %v", err)
	}

	// TimedOut is reported, then the attempt settles in Failed.
	sawTimedOut := false
	for _, s := range states {
		if s == StateTimedOut {
			sawTimedOut = true
		}
	}
	if !sawTimedOut {
		t.Errorf("no TimedOut event in %v", states)
	}
	if states[len(states)-1] != StateFailed {
		t.Errorf("final state = %s, want Failed", states[len(states)-1])
	}

	// One instance was requested; no retry happened.
	instances, _ := fake.ListInstances(context.Background())
	if len(instances) != 1 {
		t.Errorf("%d instances created, want exactly 1 (no automatic retry)", len(instances))
	}
}

func TestProvisionCancellation(t *testing.T) {
	fake := provider.NewFake("fake", nil)
	fake.ReadyAfter = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	p := NewProvisioner(nil)
	attempt, err := p.Start(ctx, testRequest(fake))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	cancel()

	rec, err := attempt.Wait()
	if rec != nil {
		t.Error("cancelled attempt produced a record")
	}
	if err == nil {
		t.Fatal("cancelled attempt returned no error")
	}
	if attempt.State() != StateFailed {
		t.Errorf("state after cancel = %s, want Failed", attempt.State())
	}
}

func TestProvisionProviderFailure(t *testing.T) {
	fake := provider.NewFake("fake", nil)
	fake.ProvisionErr = errdefs.ProviderAPI("fake: quota exceeded")

	p := NewProvisioner(nil)
	rec, err := p.Provision(context.Background(), testRequest(fake))
	if rec != nil {
		t.Error("failed attempt produced a record")
	}
	if !errdefs.IsProviderAPI(err) {
		t.Fatalf("error is not a provider API error: %v", err)
	}
	// The failure names the provider and candidate being evaluated.
	for _, want := range []string{"fake", "2CPU--2GB"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not name %q", err.Error(), want)
		}
	}
}

func TestStartValidatesRequest(t *testing.T) {
	p := NewProvisioner(nil)

	_, err := p.Start(context.Background(), Request{ClusterName: "x"})
	if !errdefs.IsConfiguration(err) {
		t.Errorf("missing provider: got %v", err)
	}

	_, err = p.Start(context.Background(), Request{Provider: provider.NewFake("fake", nil)})
	if !errdefs.IsConfiguration(err) {
		t.Errorf("missing cluster name: got %v", err)
	}
}
