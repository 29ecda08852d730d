package events

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/testutil/testlog"
)

func TestInterceptRunsInRegistrationOrder(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		n := name
		if err := bus.Register(n, ObserverFunc(func(*Event) { order = append(order, n) })); err != nil {
			t.Fatalf("register %s: %v", n, err)
		}
	}
	env := protocol.NewEnvelope(protocol.KindText, nil)
	if bus.Intercept(protocol.Inbound, "s-1", env) {
		t.Fatalf("no observer cancelled")
	}
	if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestInterceptStopsAtFirstCancel(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	var sawLater bool
	_ = bus.Register("cancel", ObserverFunc(func(ev *Event) { ev.Cancel() }))
	_ = bus.Register("later", ObserverFunc(func(*Event) { sawLater = true }))

	if !bus.Intercept(protocol.Outbound, "s-1", protocol.NewEnvelope(protocol.KindText, nil)) {
		t.Fatalf("expected cancellation")
	}
	if sawLater {
		t.Fatalf("observer after cancel should not run")
	}
}

func TestPassiveObserverCannotCancel(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	var sawLater bool
	_ = bus.RegisterPassive("monitor", ObserverFunc(func(ev *Event) { ev.Cancel() }))
	_ = bus.Register("later", ObserverFunc(func(*Event) { sawLater = true }))

	if bus.Intercept(protocol.Inbound, "s-1", protocol.NewEnvelope(protocol.KindText, nil)) {
		t.Fatalf("passive cancel should be ignored")
	}
	if !sawLater {
		t.Fatalf("later observer should still run")
	}
}

func TestEventCarriesSessionAndDirection(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	var got Event
	_ = bus.Register("capture", ObserverFunc(func(ev *Event) { got = *ev }))
	env := protocol.NewEnvelope(protocol.KindDisconnect, nil)
	bus.Intercept(protocol.Outbound, "s-9", env)
	if got.SessionID != "s-9" || got.Direction != protocol.Outbound || got.Envelope != env {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	noop := ObserverFunc(func(*Event) {})
	if err := bus.Register(" ", noop); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := bus.Register("x", nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("expected ErrNilObserver, got %v", err)
	}
	if err := bus.Register("x", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := bus.RegisterPassive("x", noop); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestUnregister(t *testing.T) {
	testlog.Start(t)
	bus := NewBus()
	noop := ObserverFunc(func(*Event) {})
	_ = bus.Register("a", noop)
	_ = bus.Register("b", noop)
	_ = bus.Register("c", noop)
	if !bus.Unregister("b") {
		t.Fatalf("expected b removed")
	}
	if bus.Unregister("b") {
		t.Fatalf("second unregister should report false")
	}
	if !reflect.DeepEqual(bus.Names(), []string{"a", "c"}) {
		t.Fatalf("unexpected names: %v", bus.Names())
	}
}
