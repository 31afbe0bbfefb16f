package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// staticSource is a fixed EndpointSource for dispatcher tests
type staticSource struct {
	endpoints []Endpoint
	err       error
}

func (s *staticSource) GuildEndpoints(ctx context.Context, guildID string) ([]Endpoint, error) {
	return s.endpoints, s.err
}

func newTestManager(t *testing.T, source EndpointSource) (*Manager, *MemoryLogStore) {
	t.Helper()
	store := NewMemoryLogStore(100)
	d := newTestDeliverer(t, store, nil)
	return NewManager(source, d, newTestLogger(), newTestMetrics()), store
}

func TestEventTypeKnown(t *testing.T) {
	for _, known := range KnownEventTypes() {
		if !known.Known() {
			t.Errorf("expected %q to be known", known)
		}
	}
	if EventType("nonsense").Known() {
		t.Error("expected unknown event type to be rejected")
	}
	// The synthetic test event is not subscribable
	if EventTest.Known() {
		t.Error("expected test event to be excluded from subscriptions")
	}
}

func TestEndpointSubscribed(t *testing.T) {
	endpoint := Endpoint{Events: []EventType{EventBotStarted, EventChannelCreated}}

	if !endpoint.Subscribed(EventBotStarted) {
		t.Error("expected subscribed event to match")
	}
	if endpoint.Subscribed(EventModerationBanned) {
		t.Error("expected unsubscribed event not to match")
	}
}

func TestFireEvent_DeliversToSubscribedEndpoints(t *testing.T) {
	delivered := make(chan string, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered <- r.Header.Get("X-Herald-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	source := &staticSource{endpoints: []Endpoint{
		{ID: "ep-1", URL: server.URL, Enabled: true, Events: []EventType{EventChannelCreated}},
		{ID: "ep-2", URL: server.URL, Enabled: true, Events: []EventType{EventBotStarted}},
		{ID: "ep-3", URL: server.URL, Enabled: false, Events: []EventType{EventChannelCreated}},
	}}
	manager, _ := newTestManager(t, source)

	manager.FireEvent(context.Background(), EventChannelCreated, "guild-1", map[string]interface{}{"channel_id": "42"})

	select {
	case event := <-delivered:
		if event != string(EventChannelCreated) {
			t.Errorf("delivered event = %q", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	// Only the enabled, subscribed endpoint fires
	select {
	case <-delivered:
		t.Error("expected exactly one delivery")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFireEvent_SourceErrorIsSwallowed(t *testing.T) {
	source := &staticSource{err: errors.New("config store down")}
	manager, store := newTestManager(t, source)

	// Must not panic or block the caller
	manager.FireEvent(context.Background(), EventBotStarted, "guild-1", nil)

	attempts, _ := store.List(context.Background(), "guild-1", 10)
	if len(attempts) != 0 {
		t.Errorf("expected no attempts after source error, got %d", len(attempts))
	}
}

func TestFireEvent_NoEndpointsIsCheap(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	manager, _ := newTestManager(t, &staticSource{})
	manager.FireEvent(context.Background(), EventBotStarted, "guild-1", nil)

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("expected no network activity, got %d requests", hits)
	}
}

func TestFireEvent_ReturnsBeforeDeliveryCompletes(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(release)

	source := &staticSource{endpoints: []Endpoint{
		{ID: "ep-1", URL: server.URL, Enabled: true, Events: []EventType{EventBotStarted}},
	}}
	manager, _ := newTestManager(t, source)

	done := make(chan struct{})
	go func() {
		manager.FireEvent(context.Background(), EventBotStarted, "guild-1", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("FireEvent blocked on a slow receiver")
	}
}

func TestTestEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Herald-Event") != string(EventTest) {
			t.Errorf("expected test event header, got %q", r.Header.Get("X-Herald-Event"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	manager, _ := newTestManager(t, &staticSource{})

	endpoint := Endpoint{ID: "ep-1", URL: server.URL, Enabled: true}
	result := manager.TestEndpoint(context.Background(), "guild-1", endpoint)

	if !result.OK {
		t.Errorf("expected test to succeed: %+v", result)
	}
	if result.Status != http.StatusOK || result.Text != "pong" {
		t.Errorf("unexpected result: %+v", result)
	}
}
