package events

import (
	"testing"

	"github.com/taskmaster/tasksync/internal/domain/stats"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	bus := New()
	var order []int

	for i := 1; i <= 3; i++ {
		i := i
		Subscribe(bus, CollectionChanged, func(CollectionEvent) { order = append(order, i) })
	}

	n := Publish(bus, CollectionChanged, CollectionEvent{Source: SourceAdd})

	if n != 3 {
		t.Errorf("expected 3 listeners invoked, got %d", n)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("unexpected delivery order %v", order)
	}
}

func TestPublishIsSynchronous(t *testing.T) {
	bus := New()
	var got CollectionEvent
	Subscribe(bus, CollectionChanged, func(ev CollectionEvent) { got = ev })

	Publish(bus, CollectionChanged, CollectionEvent{Source: SourceDelete, TaskID: 4})

	if got.Source != SourceDelete || got.TaskID != 4 {
		t.Errorf("listener had not run when Publish returned: %+v", got)
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := New()
	called := false
	Subscribe(bus, UpcomingChanged, func(TaskListEvent) { called = true })

	Publish(bus, RecentChanged, TaskListEvent{})

	if called {
		t.Errorf("listener on another topic was invoked")
	}
}

func TestPublishWithoutListeners(t *testing.T) {
	bus := New()
	if n := Publish(bus, WidgetRefresh, stats.Snapshot{}); n != 0 {
		t.Errorf("expected 0 listeners, got %d", n)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	calls := 0
	sub := Subscribe(bus, CompletionStatsChanged, func(stats.CompletionStats) { calls++ })

	Publish(bus, CompletionStatsChanged, stats.CompletionStats{})
	if !bus.Unsubscribe(sub) {
		t.Fatalf("first Unsubscribe should report true")
	}
	if bus.Unsubscribe(sub) {
		t.Errorf("second Unsubscribe should report false")
	}
	Publish(bus, CompletionStatsChanged, stats.CompletionStats{})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if n := bus.ListenerCount(CompletionStatsChanged.Name()); n != 0 {
		t.Errorf("expected no listeners left, got %d", n)
	}
}

func TestSubscribeDuringPublishSeesNextPublishOnly(t *testing.T) {
	bus := New()
	late := 0
	Subscribe(bus, CollectionChanged, func(CollectionEvent) {
		Subscribe(bus, CollectionChanged, func(CollectionEvent) { late++ })
	})

	Publish(bus, CollectionChanged, CollectionEvent{})
	if late != 0 {
		t.Fatalf("listener added mid-publish ran in the same publish")
	}

	Publish(bus, CollectionChanged, CollectionEvent{})
	if late != 1 {
		t.Errorf("expected late listener to run once, got %d", late)
	}
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	bus := New()
	reached := false
	Subscribe(bus, CollectionChanged, func(CollectionEvent) { panic("boom") })
	Subscribe(bus, CollectionChanged, func(CollectionEvent) { reached = true })

	Publish(bus, CollectionChanged, CollectionEvent{})

	if !reached {
		t.Errorf("second listener did not run after the first panicked")
	}
}

func TestSubscribeAllAndHook(t *testing.T) {
	var hooked []string
	bus := New(WithPublishHook(func(topic string, listeners int) {
		hooked = append(hooked, topic)
	}))

	var seen []Envelope
	subs := bus.SubscribeAll(func(env Envelope) { seen = append(seen, env) })
	if len(subs) != len(TopicNames()) {
		t.Fatalf("expected one subscription per topic, got %d", len(subs))
	}

	Publish(bus, RecentChanged, TaskListEvent{Source: SourceTag})
	Publish(bus, WidgetRefresh, stats.Snapshot{Total: 3})

	if len(seen) != 2 || seen[0].Topic != "tasks:recent" || seen[1].Topic != "widgets:refresh" {
		t.Fatalf("unexpected envelopes %+v", seen)
	}
	if snap, ok := seen[1].Payload.(stats.Snapshot); !ok || snap.Total != 3 {
		t.Errorf("payload not carried through: %#v", seen[1].Payload)
	}
	if len(hooked) != 2 {
		t.Errorf("expected hook per publish, got %v", hooked)
	}

	bus.UnsubscribeAll(subs)
	Publish(bus, RecentChanged, TaskListEvent{})
	if len(seen) != 2 {
		t.Errorf("listener still registered after UnsubscribeAll")
	}
}
