package provider

import (
	"context"
	"testing"

	"skylift/internal/cloud/catalog"
)

func TestFakeAcceleratorGate(t *testing.T) {
	offers := catalog.DefaultOffers()

	tests := []struct {
		name      string
		cloud     string
		labelled  []string
		query     string
		wantFound bool
	}{
		{name: "non-kubernetes clouds are never gated", cloud: "lambda", labelled: nil, query: "A10", wantFound: true},
		{name: "kubernetes without labelled nodes is closed", cloud: "kubernetes", labelled: nil, query: "T4", wantFound: false},
		{name: "kubernetes with the labelled node is open", cloud: "kubernetes", labelled: []string{"T4"}, query: "T4", wantFound: true},
		{name: "label match ignores case", cloud: "kubernetes", labelled: []string{"t4"}, query: "T4", wantFound: true},
		{name: "kubernetes without the requested label is closed", cloud: "kubernetes", labelled: []string{"T4"}, query: "A100", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFake(tt.cloud, offers)
			f.AcceleratorNodes = tt.labelled

			found, err := f.HasAcceleratorNode(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("HasAcceleratorNode: %v", err)
			}
			if found != tt.wantFound {
				t.Errorf("HasAcceleratorNode(%q) = %v, want %v", tt.query, found, tt.wantFound)
			}
		})
	}
}
