package core

import "testing"

func TestEventBusFireStopsWhenHandled(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first, second := "first", "second"
	bus.Register(EVENT_CODE_RESIZED, first, func(_ SystemEventCode, _ interface{}, l interface{}, ctx EventContext) bool {
		calls = append(calls, l.(string))
		return ctx.Data.U32[0] > 100
	})
	bus.Register(EVENT_CODE_RESIZED, second, func(_ SystemEventCode, _ interface{}, l interface{}, _ EventContext) bool {
		calls = append(calls, l.(string))
		return true
	})

	var ctx EventContext
	ctx.Data.U32[0] = 640
	if !bus.Fire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("expected event handled")
	}
	if len(calls) != 1 || calls[0] != "first" {
		t.Errorf("calls = %v, want [first]", calls)
	}

	calls = nil
	ctx.Data.U32[0] = 10
	bus.Fire(EVENT_CODE_RESIZED, nil, ctx)
	if len(calls) != 2 {
		t.Errorf("calls = %v, want both listeners", calls)
	}
}

func TestEventBusRegisterTwiceAndUnregister(t *testing.T) {
	bus := NewEventBus()
	noop := func(SystemEventCode, interface{}, interface{}, EventContext) bool { return true }

	if !bus.Register(EVENT_CODE_APPLICATION_QUIT, "l", noop) {
		t.Fatal("first register failed")
	}
	if bus.Register(EVENT_CODE_APPLICATION_QUIT, "l", noop) {
		t.Error("duplicate register must fail")
	}
	if !bus.Unregister(EVENT_CODE_APPLICATION_QUIT, "l") {
		t.Error("unregister failed")
	}
	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Error("no listener should be left")
	}
}
