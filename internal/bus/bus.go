// Package bus provides a synchronous in-process publish/subscribe
// event fan-out with per-handler error isolation.
package bus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/djentronome/rhythm-core/internal/logger"
)

// Kind is a closed-set event kind. The set matches the engine's 17
// defined lifecycle and timing events; no other kind can be emitted.
type Kind int

const (
	Start Kind = iota
	Stop
	Pause
	Resume
	Update
	Render
	Error
	PatternLoaded
	PatternStarted
	PatternPaused
	PatternResumed
	PatternStopped
	PatternCompleted
	SectionChanged
	NoteTriggered
	HitJudged
	CalibrationUpdated

	numKinds
)

var kindNames = map[Kind]string{
	Start:              "START",
	Stop:               "STOP",
	Pause:              "PAUSE",
	Resume:             "RESUME",
	Update:             "UPDATE",
	Render:             "RENDER",
	Error:              "ERROR",
	PatternLoaded:      "PATTERN_LOADED",
	PatternStarted:     "PATTERN_STARTED",
	PatternPaused:      "PATTERN_PAUSED",
	PatternResumed:     "PATTERN_RESUMED",
	PatternStopped:     "PATTERN_STOPPED",
	PatternCompleted:   "PATTERN_COMPLETED",
	SectionChanged:     "SECTION_CHANGED",
	NoteTriggered:      "NOTE_TRIGGERED",
	HitJudged:          "HIT_JUDGED",
	CalibrationUpdated: "CALIBRATION_UPDATED",
}

var kindValues = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// KindFromString resolves an event kind name. ok is false for names
// outside the closed set.
func KindFromString(s string) (Kind, bool) {
	k, ok := kindValues[s]
	return k, ok
}

// Event is a single published occurrence. Payload's concrete type
// depends on Kind and is defined by the emitting package (for example
// ErrorPayload below for Error events).
type Event struct {
	Kind       Kind
	GameTimeMs float64
	Payload    any
}

// ErrorPayload wraps the event that caused a handler failure. Emitted
// as the Payload of a synthetic Error event.
type ErrorPayload struct {
	Original Event
	Err      error
}

// Handler receives a dispatched event. A returned error is caught by
// the bus and never propagated to the emitter.
type Handler func(Event) error

// Token identifies a single subscription for targeted unsubscription.
type Token uint64

type subscription struct {
	token   Token
	handler Handler
	once    bool
}

// Bus is a synchronous, single-threaded event dispatcher. It is safe
// to mutate the handler set only from the core thread; emission reads
// a snapshot so handlers may subscribe or unsubscribe during dispatch
// without affecting the current round.
type Bus struct {
	mu     sync.Mutex
	log    *logger.Logger
	subs   map[Kind][]subscription
	nextID atomic.Uint64
}

// New creates an empty event bus.
func New(log *logger.Logger) *Bus {
	return &Bus{
		log:  log,
		subs: make(map[Kind][]subscription),
	}
}

// Subscribe registers handler for kind and returns a token that can be
// passed to Unsubscribe to remove it.
func (b *Bus) Subscribe(kind Kind, handler Handler) Token {
	return b.add(kind, handler, false)
}

// SubscribeOnce registers handler for kind; it is automatically
// removed after its first invocation (whether or not it returns an
// error).
func (b *Bus) SubscribeOnce(kind Kind, handler Handler) Token {
	return b.add(kind, handler, true)
}

func (b *Bus) add(kind Kind, handler Handler, once bool) Token {
	tok := Token(b.nextID.Add(1))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[kind] = append(b.subs[kind], subscription{token: tok, handler: handler, once: once})
	return tok
}

// Unsubscribe removes a single subscription by token. No-op if the
// token is unknown (already removed, or never valid).
func (b *Bus) Unsubscribe(token Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, list := range b.subs {
		for i, s := range list {
			if s.token == token {
				b.subs[kind] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// UnsubscribeKind removes every handler registered for kind.
func (b *Bus) UnsubscribeKind(kind Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, kind)
}

// UnsubscribeAll removes every handler for every kind.
func (b *Bus) UnsubscribeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Kind][]subscription)
}

// Emit dispatches event to every handler subscribed to event.Kind, in
// subscription order, on a snapshot of the handler set taken before
// iteration begins. A handler failure (error return or panic) is
// caught, logged, and re-emitted as a synthetic Error event carrying
// the original event and the failure — unless event.Kind is already
// Error, in which case the failure is only logged to avoid re-entrant
// error storms.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	snapshot := append([]subscription(nil), b.subs[event.Kind]...)
	b.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	var fired []Token
	for _, s := range snapshot {
		err := b.invoke(s.handler, event)
		if s.once {
			fired = append(fired, s.token)
		}
		if err != nil {
			b.log.Warn("bus: handler for %s failed: %v", event.Kind, err)
			if event.Kind != Error {
				b.emitError(event, err)
			}
		}
	}

	for _, t := range fired {
		b.Unsubscribe(t)
	}
}

// invoke calls handler, converting a panic into an error so a single
// misbehaving subscriber can never bring down the dispatch loop.
func (b *Bus) invoke(handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(event)
}

func (b *Bus) emitError(original Event, cause error) {
	b.Emit(Event{
		Kind:       Error,
		GameTimeMs: original.GameTimeMs,
		Payload:    ErrorPayload{Original: original, Err: cause},
	})
}
