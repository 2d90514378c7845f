package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"skylift/internal/cloud/catalog"
	"skylift/internal/cloud/provider"
	"skylift/internal/optimizer"
	"skylift/internal/provision"
)

func dialEvents(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHubStreamsEventsUntilTerminal(t *testing.T) {
	fake := provider.NewFake("fake", catalog.DefaultOffers())
	fake.ReadyAfter = 20 * time.Millisecond

	p := provision.NewProvisioner(nil)
	attempt, err := p.Start(context.Background(), provision.Request{
		ClusterName:  "stream-test",
		Provider:     fake,
		Offer:        optimizer.Candidate{Offer: catalog.Offer{Provider: "fake", InstanceType: "2CPU--2GB"}},
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	hub := NewHub(nil)
	hub.Track(attempt)

	srv := httptest.NewServer(hub.HandleEvents(attempt.ID))
	defer srv.Close()

	conn := dialEvents(t, srv)
	defer conn.Close()

	var states []provision.State
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var ev provision.Event
		if err := conn.ReadJSON(&ev); err != nil {
			// Normal close after the terminal event.
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read: %v", err)
		}
		states = append(states, ev.State)
		if ev.State.Terminal() {
			break
		}
	}

	want := []provision.State{provision.StatePending, provision.StateRequested, provision.StateReady}
	if len(states) != len(want) {
		t.Fatalf("got states %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s", i, states[i], want[i])
		}
	}
}

func TestHubRefusesSecondObserver(t *testing.T) {
	fake := provider.NewFake("fake", catalog.DefaultOffers())
	fake.ReadyAfter = time.Second

	p := provision.NewProvisioner(nil)
	attempt, err := p.Start(context.Background(), provision.Request{
		ClusterName:  "observer-test",
		Provider:     fake,
		Offer:        optimizer.Candidate{Offer: catalog.Offer{Provider: "fake", InstanceType: "2CPU--2GB"}},
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	hub := NewHub(nil)
	hub.Track(attempt)

	srv := httptest.NewServer(hub.HandleEvents(attempt.ID))
	defer srv.Close()

	conn := dialEvents(t, srv)
	defer conn.Close()

	// The channel is consumed by the first client; a second one would
	// only see a subset of the events, so it is turned away.
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second observer: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	// Once the first client disconnects the attempt is claimable again.
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("get after close: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("attempt still claimed after the first observer left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubUnknownAttempt(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub.HandleEvents("no-such-attempt"))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestHubTrackForget(t *testing.T) {
	hub := NewHub(nil)
	a := &provision.Attempt{ID: "a-1"}
	hub.Track(a)
	if _, ok := hub.Get("a-1"); !ok {
		t.Fatal("tracked attempt not found")
	}
	hub.Forget("a-1")
	if _, ok := hub.Get("a-1"); ok {
		t.Fatal("forgotten attempt still present")
	}
}
