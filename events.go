package feather2d

import (
	"cmp"
	"slices"

	"github.com/akmonengine/feather2d/actor"
	"github.com/akmonengine/feather2d/manifold"
)

const (
	CONTACT_BEGIN EventType = iota
	CONTACT_STAY
	CONTACT_END
	TRIGGER_ENTER
	TRIGGER_STAY
	TRIGGER_EXIT
	ON_SLEEP
	ON_WAKE
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case CONTACT_BEGIN:
		return "contact begin"
	case CONTACT_STAY:
		return "contact stay"
	case CONTACT_END:
		return "contact end"
	case TRIGGER_ENTER:
		return "trigger enter"
	case TRIGGER_STAY:
		return "trigger stay"
	case TRIGGER_EXIT:
		return "trigger exit"
	case ON_SLEEP:
		return "sleep"
	case ON_WAKE:
		return "wake"
	}
	return "unknown"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// ContactPair names the two fixtures of a touching contact, FixtureA < FixtureB.
// Contact may already be destroyed when the pair ends.
type ContactPair struct {
	Contact  ContactID
	FixtureA actor.FixtureID
	FixtureB actor.FixtureID
	BodyA    actor.BodyID
	BodyB    actor.BodyID
}

func makeContactPair(c *Contact) ContactPair {
	if c.FixtureB < c.FixtureA {
		return ContactPair{Contact: c.ID, FixtureA: c.FixtureB, FixtureB: c.FixtureA, BodyA: c.BodyB, BodyB: c.BodyA}
	}
	return ContactPair{Contact: c.ID, FixtureA: c.FixtureA, FixtureB: c.FixtureB, BodyA: c.BodyA, BodyB: c.BodyB}
}

func comparePairs(a, b ContactPair) int {
	if c := cmp.Compare(a.FixtureA, b.FixtureA); c != 0 {
		return c
	}
	return cmp.Compare(a.FixtureB, b.FixtureB)
}

// Contact events
type ContactBeginEvent struct{ ContactPair }

func (e ContactBeginEvent) Type() EventType { return CONTACT_BEGIN }

type ContactStayEvent struct{ ContactPair }

func (e ContactStayEvent) Type() EventType { return CONTACT_STAY }

type ContactEndEvent struct{ ContactPair }

func (e ContactEndEvent) Type() EventType { return CONTACT_END }

// Trigger events, for contacts involving a sensor
type TriggerEnterEvent struct{ ContactPair }

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerStayEvent struct{ ContactPair }

func (e TriggerStayEvent) Type() EventType { return TRIGGER_STAY }

type TriggerExitEvent struct{ ContactPair }

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body actor.BodyID
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body actor.BodyID
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// EventListener - callback for events
type EventListener func(event Event)

// ContactListener is called synchronously during a step, while the world is locked.
//
// PreSolve runs after a non-sensor contact was updated and found touching; it may disable the
// contact for the step or change its friction and restitution. PostSolve runs after the island
// holding the contact was solved.
type ContactListener interface {
	PreSolve(contact *Contact, oldManifold *manifold.Manifold)
	PostSolve(contact *Contact, impulse ContactImpulse)
}

type activePair struct {
	ContactPair
	sensor   bool
	sleeping bool
}

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Touching pairs of the previous and current step, sorted by fixtures
	previousActivePairs []activePair
	currentActivePairs  []activePair

	sleepStates map[actor.BodyID]bool
}

func NewEvents() Events {
	return Events{
		listeners:   make(map[EventType][]EventListener),
		buffer:      make([]Event, 0, 256),
		sleepStates: make(map[actor.BodyID]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContact is called at the end of a step for every touching contact
func (e *Events) recordContact(c *Contact, sleeping bool) {
	e.currentActivePairs = append(e.currentActivePairs, activePair{
		ContactPair: makeContactPair(c),
		sensor:      c.IsSensor(),
		sleeping:    sleeping,
	})
}

// forgetBody drops the tracking of a destroyed body, without emitting events
func (e *Events) forgetBody(body actor.BodyID) {
	delete(e.sleepStates, body)
	e.previousActivePairs = slices.DeleteFunc(e.previousActivePairs, func(p activePair) bool {
		return p.BodyA == body || p.BodyB == body
	})
}

// forgetFixture drops the tracking of a destroyed fixture, without emitting events
func (e *Events) forgetFixture(fixture actor.FixtureID) {
	e.previousActivePairs = slices.DeleteFunc(e.previousActivePairs, func(p activePair) bool {
		return p.FixtureA == fixture || p.FixtureB == fixture
	})
}

// processContactEvents compares current and previous pairs to detect Begin/Stay/End.
// Both lists are sorted, so events come out in fixture order.
func (e *Events) processContactEvents() {
	slices.SortFunc(e.currentActivePairs, func(a, b activePair) int {
		return comparePairs(a.ContactPair, b.ContactPair)
	})

	previous, current := e.previousActivePairs, e.currentActivePairs
	i, j := 0, 0
	for i < len(previous) || j < len(current) {
		var order int
		switch {
		case i == len(previous):
			order = 1
		case j == len(current):
			order = -1
		default:
			order = comparePairs(previous[i].ContactPair, current[j].ContactPair)
		}

		switch {
		case order < 0:
			// Pair was active but is no longer, End
			pair := previous[i]
			if pair.sensor {
				e.buffer = append(e.buffer, TriggerExitEvent{pair.ContactPair})
			} else {
				e.buffer = append(e.buffer, ContactEndEvent{pair.ContactPair})
			}
			i++
		case order > 0:
			// New pair, Begin
			pair := current[j]
			if pair.sensor {
				e.buffer = append(e.buffer, TriggerEnterEvent{pair.ContactPair})
			} else {
				e.buffer = append(e.buffer, ContactBeginEvent{pair.ContactPair})
			}
			j++
		default:
			// Pair was active before and still is, Stay.
			// Skip if both bodies are sleeping, to avoid spamming events
			pair := current[j]
			if !pair.sleeping {
				if pair.sensor {
					e.buffer = append(e.buffer, TriggerStayEvent{pair.ContactPair})
				} else {
					e.buffer = append(e.buffer, ContactStayEvent{pair.ContactPair})
				}
			}
			i++
			j++
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = current, previous[:0]
}

// processSleepEvents compares the awake flag of each body, in id order, with the last one seen.
// A body seen for the first time emits nothing.
func (e *Events) processSleepEvents(body *actor.RigidBody) {
	sleeping := !body.IsAwake()
	trackedState, exists := e.sleepStates[body.ID]
	if !exists {
		e.sleepStates[body.ID] = sleeping
		return
	}

	if !trackedState && sleeping {
		e.buffer = append(e.buffer, SleepEvent{Body: body.ID})
	} else if trackedState && !sleeping {
		e.buffer = append(e.buffer, WakeEvent{Body: body.ID})
	}
	e.sleepStates[body.ID] = sleeping
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	events := e.buffer
	e.buffer = nil
	for _, event := range events {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	if e.buffer == nil {
		e.buffer = events[:0]
	}
}
