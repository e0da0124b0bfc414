package actuator

import (
	"testing"
	"time"

	"github.com/go-logr/logr/testr"

	"github.com/sweeney/actuator-node/internal/clock"
	"github.com/sweeney/actuator-node/internal/gpio"
)

// recorder is a Notifier that keeps every call.
type recorder struct {
	calls []notification
}

type notification struct {
	sig         Signal
	currentOnly bool
}

func (r *recorder) Notify(sig Signal, currentOnly bool) {
	r.calls = append(r.calls, notification{sig, currentOnly})
}

// testStepperConfig is the N=3, 8 s per step window used throughout.
func testStepperConfig() StepperConfig {
	return StepperConfig{
		Steps:          3,
		OpenStep:       8 * time.Second,
		CloseStep:      8 * time.Second,
		FullClose:      25 * time.Second,
		CloseMargin:    5 * time.Second,
		CloseExtension: 5 * time.Second,
	}
}

type stepperRig struct {
	s      *Stepper
	clk    *clock.Fake
	open   *gpio.FakeRelay
	close  *gpio.FakeRelay
	sensor *gpio.FakeSensor
	notes  *recorder
}

func newStepperRig(t *testing.T, start clock.Millis) *stepperRig {
	t.Helper()
	r := &stepperRig{
		clk:    clock.NewFake(start),
		open:   gpio.NewFakeRelay(),
		close:  gpio.NewFakeRelay(),
		sensor: gpio.NewFakeSensor(true),
		notes:  &recorder{},
	}
	s, err := NewStepper(testStepperConfig(), StepperHardware{
		ClosedSensor: r.sensor,
		Open:         r.open,
		Close:        r.close,
	}, r.clk, r.notes, WithLogger(testr.New(t)))
	if err != nil {
		t.Fatalf("NewStepper: %v", err)
	}
	r.s = s
	return r
}

// moveTo drives the stepper to p and lets the transition complete.
func (r *stepperRig) moveTo(t *testing.T, p Position) {
	t.Helper()
	if !r.s.SetState(p, false) {
		t.Fatalf("SetState(%d) rejected", p)
	}
	r.clk.Advance(time.Minute)
	r.s.Process()
	if r.s.Moving() {
		t.Fatalf("still moving after a minute")
	}
	r.notes.calls = nil
}

func (r *stepperRig) bothEnergized() bool {
	return r.open.On && r.close.On
}
