package bus

import (
	"errors"
	"testing"

	"github.com/djentronome/rhythm-core/internal/logger"
)

func newTestBus() *Bus {
	return New(logger.New(logger.LevelOff, nil))
}

func TestSubscribeAndEmit(t *testing.T) {
	b := newTestBus()

	var got []Event
	b.Subscribe(NoteTriggered, func(e Event) error {
		got = append(got, e)
		return nil
	})

	b.Emit(Event{Kind: NoteTriggered, GameTimeMs: 100})
	b.Emit(Event{Kind: HitJudged, GameTimeMs: 200})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].GameTimeMs != 100 {
		t.Fatalf("expected game time 100, got %v", got[0].GameTimeMs)
	}
}

func TestSubscriptionOrder(t *testing.T) {
	b := newTestBus()

	var order []int
	b.Subscribe(Update, func(Event) error { order = append(order, 1); return nil })
	b.Subscribe(Update, func(Event) error { order = append(order, 2); return nil })
	b.Subscribe(Update, func(Event) error { order = append(order, 3); return nil })

	b.Emit(Event{Kind: Update})

	for i, v := range order {
		if v != i+1 {
			t.Fatalf("expected subscription order 1,2,3, got %v", order)
		}
	}
}

func TestSubscribeOnce(t *testing.T) {
	b := newTestBus()

	calls := 0
	b.SubscribeOnce(Start, func(Event) error {
		calls++
		return nil
	})

	b.Emit(Event{Kind: Start})
	b.Emit(Event{Kind: Start})

	if calls != 1 {
		t.Fatalf("expected handler to fire once, got %d", calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := newTestBus()

	calls := 0
	tok := b.Subscribe(Render, func(Event) error { calls++; return nil })
	b.Emit(Event{Kind: Render})
	b.Unsubscribe(tok)
	b.Emit(Event{Kind: Render})

	if calls != 1 {
		t.Fatalf("expected 1 call before unsubscribe, got %d", calls)
	}
}

func TestUnsubscribeKind(t *testing.T) {
	b := newTestBus()

	calls := 0
	b.Subscribe(Render, func(Event) error { calls++; return nil })
	b.Subscribe(Render, func(Event) error { calls++; return nil })
	b.UnsubscribeKind(Render)
	b.Emit(Event{Kind: Render})

	if calls != 0 {
		t.Fatalf("expected 0 calls after UnsubscribeKind, got %d", calls)
	}
}

func TestHandlerFailureEmitsErrorEvent(t *testing.T) {
	b := newTestBus()

	var errEvents []Event
	b.Subscribe(Error, func(e Event) error {
		errEvents = append(errEvents, e)
		return nil
	})
	b.Subscribe(NoteTriggered, func(e Event) error {
		return errors.New("boom")
	})

	b.Emit(Event{Kind: NoteTriggered, GameTimeMs: 42})

	if len(errEvents) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(errEvents))
	}
	payload, ok := errEvents[0].Payload.(ErrorPayload)
	if !ok {
		t.Fatalf("expected ErrorPayload, got %T", errEvents[0].Payload)
	}
	if payload.Original.Kind != NoteTriggered {
		t.Fatalf("expected original kind NoteTriggered, got %v", payload.Original.Kind)
	}
}

func TestErrorHandlerFailureDoesNotReenter(t *testing.T) {
	b := newTestBus()

	calls := 0
	b.Subscribe(Error, func(e Event) error {
		calls++
		return errors.New("secondary failure")
	})

	b.Emit(Event{Kind: Error, Payload: ErrorPayload{Err: errors.New("primary")}})

	if calls != 1 {
		t.Fatalf("expected the error handler to fire exactly once, got %d", calls)
	}
}

func TestSnapshotDispatchAllowsSubscribeDuringEmit(t *testing.T) {
	b := newTestBus()

	secondCalls := 0
	b.Subscribe(Update, func(Event) error {
		b.Subscribe(Update, func(Event) error {
			secondCalls++
			return nil
		})
		return nil
	})

	b.Emit(Event{Kind: Update})
	if secondCalls != 0 {
		t.Fatalf("handler added mid-dispatch should not fire in the same round")
	}

	b.Emit(Event{Kind: Update})
	if secondCalls != 1 {
		t.Fatalf("handler added mid-dispatch should fire on the next round")
	}
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	b := newTestBus()

	ran := false
	b.Subscribe(Render, func(Event) error {
		panic("unexpected")
	})
	b.Subscribe(Render, func(Event) error {
		ran = true
		return nil
	})

	b.Emit(Event{Kind: Render})

	if !ran {
		t.Fatal("expected second handler to run despite first handler panicking")
	}
}
