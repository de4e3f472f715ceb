package plant

import "testing"

// powered is a stub that feeds a fixed energy flow into a bus.
type powered struct {
	*stub
	value float64
}

func (p *powered) BusValue() float64 { return p.value }

func TestBusValue(t *testing.T) {
	pump := &powered{stub: newStub("pump", 1, 1), value: 50}
	turb := &powered{stub: newStub("turbine", 1, 1), value: -200}

	bus := NewBus("shaft")
	if err := bus.Add(&BusEntry{Comp: pump, Param: "P"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := bus.Add(&BusEntry{Comp: turb, Param: "P"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := bus.Value(); got != -150 {
		t.Errorf("Value() = %g", got)
	}
}

func TestBusValueWithCharacteristic(t *testing.T) {
	gen := &powered{stub: newStub("generator", 1, 1), value: 50}
	bus := NewBus("electric")
	err := bus.Add(&BusEntry{
		Comp:  gen,
		Param: "P",
		Ref:   100,
		Char:  &CharLine{X: []float64{0, 1, 2}, Y: []float64{0.5, 1, 1.5}},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// 50/100 load evaluates the characteristic at 0.5
	if got := bus.Value(); got != 50*0.75 {
		t.Errorf("Value() = %g", got)
	}
}

func TestBusRejectsDuplicateEntry(t *testing.T) {
	pump := &powered{stub: newStub("pump", 1, 1), value: 50}
	bus := NewBus("shaft")
	if err := bus.Add(&BusEntry{Comp: pump, Param: "P"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := bus.Add(&BusEntry{Comp: pump, Param: "P"}); err == nil {
		t.Fatal("expected duplicate entry error")
	}
	if err := bus.Add(&BusEntry{Comp: pump, Param: "Q"}); err != nil {
		t.Errorf("distinct parameter must be allowed: %v", err)
	}
}
