package feather2d

import (
	"testing"

	"github.com/akmonengine/feather2d/actor"
)

// createTestContact creates a touching contact between two fixtures of two bodies
func createTestContact(id ContactID, fixtureA, fixtureB actor.FixtureID, sensor bool) *Contact {
	return &Contact{
		ID:       id,
		FixtureA: fixtureA,
		FixtureB: fixtureB,
		BodyA:    actor.BodyID(fixtureA),
		BodyB:    actor.BodyID(fixtureB),
		flags:    contactEnabled | contactTouching,
		sensor:   sensor,
	}
}

// createTestBody creates a dynamic body for sleep event testing
func createTestBody(id actor.BodyID, sleeping bool) *actor.RigidBody {
	rb := actor.NewRigidBody(id, actor.DefaultBodyDef(actor.BodyTypeDynamic))
	rb.SetAwake(!sleeping)
	return rb
}

type eventCapture struct {
	events []Event
}

func (ec *eventCapture) capture(event Event) {
	ec.events = append(ec.events, event)
}

func (ec *eventCapture) reset() {
	ec.events = ec.events[:0]
}

func (ec *eventCapture) count() int {
	return len(ec.events)
}

func (ec *eventCapture) hasEventType(eventType EventType) bool {
	for _, e := range ec.events {
		if e.Type() == eventType {
			return true
		}
	}
	return false
}

// frame records the touching contacts of one step and flushes the resulting events
func frame(events *Events, contacts ...*Contact) {
	for _, c := range contacts {
		events.recordContact(c, false)
	}
	events.processContactEvents()
	events.flush()
}

func subscribeAll(events *Events, capture *eventCapture) {
	for _, eventType := range []EventType{
		CONTACT_BEGIN, CONTACT_STAY, CONTACT_END,
		TRIGGER_ENTER, TRIGGER_STAY, TRIGGER_EXIT,
		ON_SLEEP, ON_WAKE,
	} {
		events.Subscribe(eventType, capture.capture)
	}
}

// =============================================================================
// Subscribe and Listeners Tests
// =============================================================================

func TestEvents_Subscribe(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}

	events.Subscribe(CONTACT_BEGIN, capture.capture)

	if len(events.listeners[CONTACT_BEGIN]) != 1 {
		t.Errorf("Expected 1 listener for CONTACT_BEGIN, got %d", len(events.listeners[CONTACT_BEGIN]))
	}
}

func TestEvents_MultipleListeners(t *testing.T) {
	events := NewEvents()
	captures := []*eventCapture{{}, {}, {}}
	for _, capture := range captures {
		events.Subscribe(CONTACT_BEGIN, capture.capture)
	}

	frame(&events, createTestContact(0, 1, 2, false))

	for i, capture := range captures {
		if capture.count() != 1 {
			t.Errorf("Capture %d expected 1 event, got %d", i, capture.count())
		}
	}
}

func TestEvents_DifferentEventTypes(t *testing.T) {
	events := NewEvents()
	captureContact := &eventCapture{}
	captureTrigger := &eventCapture{}
	events.Subscribe(CONTACT_BEGIN, captureContact.capture)
	events.Subscribe(TRIGGER_ENTER, captureTrigger.capture)

	frame(&events, createTestContact(0, 1, 2, false))

	if captureContact.count() != 1 {
		t.Errorf("Expected 1 contact event, got %d", captureContact.count())
	}
	if captureTrigger.count() != 0 {
		t.Errorf("Expected 0 trigger events, got %d", captureTrigger.count())
	}
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{CONTACT_BEGIN, "contact begin"},
		{CONTACT_END, "contact end"},
		{TRIGGER_ENTER, "trigger enter"},
		{ON_WAKE, "wake"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.eventType.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Pair Tests
// =============================================================================

func TestMakeContactPair_Normalization(t *testing.T) {
	c1 := createTestContact(0, 1, 2, false)
	c2 := createTestContact(0, 2, 1, false)

	p1 := makeContactPair(c1)
	p2 := makeContactPair(c2)

	if p1 != p2 {
		t.Errorf("Expected identical pairs, got %+v and %+v", p1, p2)
	}
	if p1.FixtureA != 1 || p1.BodyA != 1 {
		t.Errorf("Expected the lowest fixture first, got %+v", p1)
	}
}

func TestComparePairs(t *testing.T) {
	tests := []struct {
		name string
		a, b ContactPair
		want int
	}{
		{"same", ContactPair{FixtureA: 1, FixtureB: 2}, ContactPair{FixtureA: 1, FixtureB: 2}, 0},
		{"first fixture", ContactPair{FixtureA: 0, FixtureB: 5}, ContactPair{FixtureA: 1, FixtureB: 2}, -1},
		{"second fixture", ContactPair{FixtureA: 1, FixtureB: 3}, ContactPair{FixtureA: 1, FixtureB: 2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := comparePairs(tt.a, tt.b); got != tt.want {
				t.Errorf("comparePairs() = %d, want %d", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Contact Events Tests
// =============================================================================

func TestEvents_ContactBegin(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	c := createTestContact(3, 1, 2, false)
	frame(&events, c)

	if capture.count() != 1 {
		t.Fatalf("Expected 1 event, got %d", capture.count())
	}
	begin, ok := capture.events[0].(ContactBeginEvent)
	if !ok {
		t.Fatalf("Expected ContactBeginEvent, got %T", capture.events[0])
	}
	if begin.Contact != 3 || begin.FixtureA != 1 || begin.FixtureB != 2 {
		t.Errorf("Unexpected pair %+v", begin.ContactPair)
	}
}

func TestEvents_ContactStay(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	c := createTestContact(0, 1, 2, false)
	frame(&events, c)
	capture.reset()
	frame(&events, c)

	if capture.count() != 1 || !capture.hasEventType(CONTACT_STAY) {
		t.Errorf("Expected a single CONTACT_STAY, got %v", capture.events)
	}
}

func TestEvents_ContactEnd(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	frame(&events, createTestContact(0, 1, 2, false))
	capture.reset()
	frame(&events)

	if capture.count() != 1 || !capture.hasEventType(CONTACT_END) {
		t.Errorf("Expected a single CONTACT_END, got %v", capture.events)
	}
}

func TestEvents_ContactStay_SleepingBodies(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	c := createTestContact(0, 1, 2, false)
	frame(&events, c)
	capture.reset()

	events.recordContact(c, true)
	events.processContactEvents()
	events.flush()

	if capture.count() != 0 {
		t.Errorf("Expected no event between sleeping bodies, got %v", capture.events)
	}

	// The pair is still tracked: no begin once the bodies wake up
	frame(&events, c)
	if capture.count() != 1 || !capture.hasEventType(CONTACT_STAY) {
		t.Errorf("Expected a single CONTACT_STAY after waking, got %v", capture.events)
	}
}

// =============================================================================
// TRIGGER Events Tests
// =============================================================================

func TestEvents_TriggerLifecycle(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	c := createTestContact(0, 1, 2, true)
	steps := []struct {
		name     string
		contacts []*Contact
		want     EventType
	}{
		{"enter", []*Contact{c}, TRIGGER_ENTER},
		{"stay", []*Contact{c}, TRIGGER_STAY},
		{"exit", nil, TRIGGER_EXIT},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			capture.reset()
			frame(&events, step.contacts...)
			if capture.count() != 1 || !capture.hasEventType(step.want) {
				t.Errorf("Expected a single %v, got %v", step.want, capture.events)
			}
		})
	}
}

func TestEvents_MixedTriggerAndContact(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	frame(&events, createTestContact(0, 1, 2, false), createTestContact(1, 3, 4, true))

	if capture.count() != 2 {
		t.Fatalf("Expected 2 events, got %d", capture.count())
	}
	if !capture.hasEventType(CONTACT_BEGIN) || !capture.hasEventType(TRIGGER_ENTER) {
		t.Errorf("Expected CONTACT_BEGIN and TRIGGER_ENTER, got %v", capture.events)
	}
}

func TestEvents_FixtureOrder(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	// Recorded out of order, delivered by fixture
	frame(&events, createTestContact(0, 5, 6, false), createTestContact(1, 1, 2, false), createTestContact(2, 3, 4, false))

	if capture.count() != 3 {
		t.Fatalf("Expected 3 events, got %d", capture.count())
	}
	for i, want := range []actor.FixtureID{1, 3, 5} {
		got := capture.events[i].(ContactBeginEvent).FixtureA
		if got != want {
			t.Errorf("Event %d: expected fixture %d, got %d", i, want, got)
		}
	}
}

// =============================================================================
// Sleep/Wake Events Tests
// =============================================================================

func TestEvents_SleepWake(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body := createTestBody(7, false)

	// First sighting records the state only
	events.processSleepEvents(body)
	events.flush()
	if capture.count() != 0 {
		t.Fatalf("Expected no event on first sighting, got %v", capture.events)
	}

	body.SetAwake(false)
	events.processSleepEvents(body)
	events.flush()
	if capture.count() != 1 {
		t.Fatalf("Expected 1 event, got %d", capture.count())
	}
	if sleep, ok := capture.events[0].(SleepEvent); !ok || sleep.Body != 7 {
		t.Errorf("Expected SleepEvent for body 7, got %+v", capture.events[0])
	}

	capture.reset()
	body.SetAwake(true)
	events.processSleepEvents(body)
	events.flush()
	if capture.count() != 1 || !capture.hasEventType(ON_WAKE) {
		t.Errorf("Expected a single ON_WAKE, got %v", capture.events)
	}
}

func TestEvents_NoSleepEvent_AlreadySleeping(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	body := createTestBody(0, true)
	events.processSleepEvents(body)
	events.processSleepEvents(body)
	events.flush()

	if capture.count() != 0 {
		t.Errorf("Expected no event, got %v", capture.events)
	}
}

func TestEvents_ForgetBody(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	frame(&events, createTestContact(0, 1, 2, false))
	capture.reset()

	events.forgetBody(1)
	frame(&events)

	if capture.count() != 0 {
		t.Errorf("Expected no CONTACT_END for a destroyed body, got %v", capture.events)
	}
}

// =============================================================================
// Edge Cases Tests
// =============================================================================

func TestEvents_EmptyBuffer_Flush(t *testing.T) {
	events := NewEvents()
	events.flush()

	if len(events.buffer) != 0 {
		t.Errorf("Expected empty buffer, got %d events", len(events.buffer))
	}
}

func TestEvents_NoListeners(t *testing.T) {
	events := NewEvents()
	frame(&events, createTestContact(0, 1, 2, false))

	if len(events.buffer) != 0 {
		t.Errorf("Expected buffer to be flushed, got %d events", len(events.buffer))
	}
}

func TestEvents_MultipleFrames_BeginEndBegin(t *testing.T) {
	events := NewEvents()
	capture := &eventCapture{}
	subscribeAll(&events, capture)

	c := createTestContact(0, 1, 2, false)
	frame(&events, c)
	frame(&events)
	frame(&events, c)

	want := []EventType{CONTACT_BEGIN, CONTACT_END, CONTACT_BEGIN}
	if capture.count() != len(want) {
		t.Fatalf("Expected %d events, got %v", len(want), capture.events)
	}
	for i, eventType := range want {
		if capture.events[i].Type() != eventType {
			t.Errorf("Event %d: expected %v, got %v", i, eventType, capture.events[i].Type())
		}
	}
}

func TestEvents_ListenerRecordsDuringFlush(t *testing.T) {
	events := NewEvents()
	var delivered int
	events.Subscribe(CONTACT_BEGIN, func(event Event) {
		delivered++
		// Events raised while flushing wait for the next flush
		events.buffer = append(events.buffer, ContactEndEvent{event.(ContactBeginEvent).ContactPair})
	})

	frame(&events, createTestContact(0, 1, 2, false))

	if delivered != 1 {
		t.Errorf("Expected 1 delivery, got %d", delivered)
	}
	if len(events.buffer) != 1 {
		t.Errorf("Expected the raised event to stay buffered, got %d", len(events.buffer))
	}
}
