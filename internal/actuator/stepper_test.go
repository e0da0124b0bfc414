package actuator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/actuator-node/internal/clock"
	"github.com/sweeney/actuator-node/internal/gpio"
)

func TestNewStepperValidation(t *testing.T) {
	hw := StepperHardware{
		ClosedSensor: gpio.NewFakeSensor(true),
		Open:         gpio.NewFakeRelay(),
		Close:        gpio.NewFakeRelay(),
	}
	clk := clock.NewFake(0)

	cfg := testStepperConfig()
	cfg.Steps = 0
	_, err := NewStepper(cfg, hw, clk, nil)
	assert.Error(t, err)

	cfg = testStepperConfig()
	cfg.OpenStep = 0
	_, err = NewStepper(cfg, hw, clk, nil)
	assert.Error(t, err)

	cfg = testStepperConfig()
	cfg.CloseExtension = -time.Second
	_, err = NewStepper(cfg, hw, clk, nil)
	assert.Error(t, err)

	_, err = NewStepper(testStepperConfig(), StepperHardware{Open: hw.Open}, clk, nil)
	assert.Error(t, err)

	_, err = NewStepper(testStepperConfig(), hw, nil, nil)
	assert.Error(t, err)

	s, err := NewStepper(testStepperConfig(), hw, clk, nil)
	require.NoError(t, err)
	assert.Equal(t, Closed, s.State())
	assert.Equal(t, Idle, s.Transition())
	assert.Equal(t, 3, s.Steps())
}

func TestStepperOpenFullyScenario(t *testing.T) {
	r := newStepperRig(t, 0)

	require.True(t, r.s.SetState(3, false))
	assert.True(t, r.open.On, "open relay energized at t=0")
	assert.False(t, r.close.On)
	assert.True(t, r.s.Moving())
	assert.Equal(t, clock.Millis(24000), r.s.Deadline())

	r.clk.Set(23999)
	r.s.Process()
	assert.True(t, r.s.Moving())
	assert.Equal(t, Closed, r.s.State(), "position only changes on completion")
	assert.Empty(t, r.notes.calls)

	r.clk.Set(24000)
	r.s.Process()
	assert.False(t, r.s.Moving())
	assert.False(t, r.open.On)
	assert.Equal(t, Position(3), r.s.State())
	assert.Zero(t, r.s.Deadline(), "deadline cleared on completion")
	require.Len(t, r.notes.calls, 1)
	assert.Equal(t, notification{SignalWindowState, false}, r.notes.calls[0])

	// A second Process with no new command is a no-op.
	r.clk.Advance(time.Hour)
	r.s.Process()
	assert.Len(t, r.notes.calls, 1)
	assert.Equal(t, []bool{true, false}, r.open.History)
}

func TestStepperSameTargetIsNoop(t *testing.T) {
	r := newStepperRig(t, 1000)
	r.moveTo(t, 2)

	deadline := r.s.Deadline()
	openHist := len(r.open.History)
	closeHist := len(r.close.History)

	for i := 0; i < 3; i++ {
		assert.False(t, r.s.SetState(2, false))
	}
	assert.Equal(t, Idle, r.s.Transition())
	assert.Equal(t, deadline, r.s.Deadline())
	assert.Len(t, r.open.History, openHist)
	assert.Len(t, r.close.History, closeHist)
	assert.Equal(t, 3, r.s.Counts().Rejected)
}

func TestStepperIdleAtEveryPositionIsNoop(t *testing.T) {
	for p := Position(1); p <= 3; p++ {
		r := newStepperRig(t, 0)
		r.moveTo(t, p)
		before := r.s.Deadline()
		assert.False(t, r.s.SetState(p, false), "position %d", p)
		assert.Equal(t, before, r.s.Deadline(), "position %d", p)
		assert.False(t, r.s.Moving(), "position %d", p)
	}
}

func TestStepperAnyNewTargetEnergizesOneRelay(t *testing.T) {
	for from := Position(0); from <= 3; from++ {
		for to := Position(0); to <= 3; to++ {
			if from == to {
				continue
			}
			r := newStepperRig(t, 500)
			if from != Closed {
				r.moveTo(t, from)
			}
			now := r.clk.Now()

			require.True(t, r.s.SetState(to, false), "%d->%d", from, to)
			assert.True(t, r.s.Moving(), "%d->%d", from, to)
			assert.True(t, r.open.On != r.close.On, "%d->%d: exactly one relay", from, to)
			assert.Greater(t, r.s.Deadline().Sub(now), time.Duration(0), "%d->%d", from, to)
			assert.Equal(t, to > from, r.open.On, "%d->%d: direction", from, to)
		}
	}
}

func TestStepperDurations(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)

	// Partial close uses CloseStep per step.
	require.True(t, r.s.SetState(1, false))
	assert.True(t, r.close.On)
	assert.Equal(t, 16*time.Second, r.s.Deadline().Sub(r.clk.Now()))
	r.clk.Advance(16 * time.Second)
	r.s.Process()
	assert.Equal(t, Position(1), r.s.State())

	// Close to Closed is the full close plus margin, regardless of distance.
	require.True(t, r.s.SetState(Closed, false))
	assert.True(t, r.close.On)
	assert.Equal(t, 30*time.Second, r.s.Deadline().Sub(r.clk.Now()))
}

func TestStepperMovingRejectsUnforced(t *testing.T) {
	r := newStepperRig(t, 0)
	require.True(t, r.s.SetState(3, false))
	deadline := r.s.Deadline()

	r.clk.Advance(time.Second)
	assert.False(t, r.s.SetState(3, false), "same target while moving")
	assert.False(t, r.s.SetState(1, false), "other target while moving")
	assert.Equal(t, deadline, r.s.Deadline())
	assert.Equal(t, Position(3), r.s.Target())
}

func TestStepperForcedRetargetNeverEnergizesBoth(t *testing.T) {
	r := newStepperRig(t, 0)
	require.True(t, r.s.SetState(3, false))

	// Track every relay write in order to catch a moment where both are on.
	var both bool
	check := func() {
		if r.bothEnergized() {
			both = true
		}
	}
	open := &watchRelay{FakeRelay: r.open, after: check}
	closeR := &watchRelay{FakeRelay: r.close, after: check}
	r.s.hw.Open = open
	r.s.hw.Close = closeR
	r.s.active = open

	r.clk.Advance(5 * time.Second)
	require.True(t, r.s.SetState(Closed, true))
	assert.False(t, both, "open and close were energized at the same time")
	assert.False(t, r.open.On)
	assert.True(t, r.close.On)
	assert.Equal(t, r.clk.Now().Add(30*time.Second), r.s.Deadline())
	assert.Equal(t, Closed, r.s.Target())

	// Forced back to open.
	r.clk.Advance(time.Second)
	require.True(t, r.s.SetState(2, true))
	assert.False(t, both)
	assert.True(t, r.open.On)
	assert.False(t, r.close.On)
}

type watchRelay struct {
	*gpio.FakeRelay
	after func()
}

func (w *watchRelay) Set(on bool) error {
	err := w.FakeRelay.Set(on)
	w.after()
	return err
}

func TestStepperForcedRearmsSameTarget(t *testing.T) {
	r := newStepperRig(t, 0)
	require.True(t, r.s.SetState(Closed, true), "forced close at Closed re-homes")
	first := r.s.Deadline()

	r.clk.Advance(10 * time.Second)
	require.True(t, r.s.SetState(Closed, true))
	assert.Equal(t, first.Add(10*time.Second), r.s.Deadline())
	assert.True(t, r.close.On)
	assert.Equal(t, 1, r.close.Activations(), "relay stays on across re-arm")
}

func TestStepperForcedZeroDeltaIsNoop(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 2)

	assert.False(t, r.s.SetState(2, true))
	assert.False(t, r.s.Moving())
	assert.Zero(t, r.s.Deadline())
	assert.Equal(t, 1, r.s.Counts().Rejected)
	assert.Empty(t, r.notes.calls)
}

func TestStepperForcedCurrentPositionStopsTransition(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 1)
	transitions := r.s.Counts().Transitions

	require.True(t, r.s.SetState(3, false))
	r.clk.Advance(4 * time.Second)
	r.s.Process()
	require.True(t, r.s.Moving())

	require.True(t, r.s.SetState(1, true), "forced back to the confirmed position")
	assert.False(t, r.s.Moving())
	assert.False(t, r.open.On)
	assert.False(t, r.close.On)
	assert.Equal(t, Position(1), r.s.State())
	assert.Equal(t, Position(1), r.s.Target())
	assert.Zero(t, r.s.Deadline())
	assert.Equal(t, 0, r.s.Counts().Rejected)
	require.Len(t, r.notes.calls, 1)
	assert.Equal(t, notification{SignalWindowState, false}, r.notes.calls[0])

	// Nothing left to complete.
	r.clk.Advance(time.Minute)
	r.s.Process()
	assert.Equal(t, Position(1), r.s.State())
	assert.Equal(t, transitions, r.s.Counts().Transitions)
	assert.Len(t, r.notes.calls, 1)
}

func TestStepperOutOfRange(t *testing.T) {
	r := newStepperRig(t, 0)
	assert.False(t, r.s.SetState(4, true))
	assert.False(t, r.s.SetState(-1, true))
	assert.False(t, r.s.Moving())
	assert.Equal(t, 2, r.s.Counts().Rejected)
}

func TestStepperCloseConfirmedNoExtension(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)

	require.True(t, r.s.SetState(Closed, false))
	start := r.clk.Now()
	r.sensor.SetValue(true)

	r.clk.Set(start.Add(30 * time.Second))
	r.s.Process()
	assert.False(t, r.s.Moving())
	assert.Equal(t, Closed, r.s.State())
	assert.Equal(t, 0, r.s.Counts().Extensions)
	assert.Len(t, r.notes.calls, 1)
}

func TestStepperCloseExtensionGrantedOnce(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)

	require.True(t, r.s.SetState(Closed, false))
	start := r.clk.Now()
	original := r.s.Deadline()
	r.sensor.SetValue(false) // stuck: never confirms closed

	r.s.Process()
	assert.Equal(t, original.Add(5*time.Second), r.s.Deadline(), "extended at the first poll")

	// Poll every 100 ms through the whole close.
	var done clock.Millis
	for r.clk.Now().Sub(start) < 40*time.Second {
		r.clk.Advance(100 * time.Millisecond)
		r.s.Process()
		if !r.s.Moving() {
			done = r.clk.Now()
			break
		}
	}

	assert.False(t, r.s.Moving())
	assert.Equal(t, Closed, r.s.State())
	assert.Equal(t, 1, r.s.Counts().Extensions)
	assert.Equal(t, original.Add(5*time.Second), done, "completion = original deadline + extension")
	assert.False(t, r.close.On)
	assert.Len(t, r.notes.calls, 1)
}

func TestStepperCloseExtensionCompletesExactly(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 1)
	r.sensor.SetValue(false)

	require.True(t, r.s.SetState(Closed, false))
	original := r.s.Deadline()

	r.s.Process()
	assert.Equal(t, 1, r.s.Counts().Extensions, "extended at the first poll")
	assert.Equal(t, original.Add(5*time.Second), r.s.Deadline())

	r.clk.Set(original)
	r.s.Process()
	assert.True(t, r.s.Moving(), "original deadline no longer ends the close")

	r.clk.Set(original.Add(5*time.Second - time.Millisecond))
	r.s.Process()
	assert.True(t, r.s.Moving())

	r.clk.Set(original.Add(5 * time.Second))
	r.s.Process()
	assert.False(t, r.s.Moving())
}

func TestStepperCloseExtensionLatchResetPerCommand(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 2)
	r.sensor.SetValue(false)

	require.True(t, r.s.SetState(Closed, false))
	first := r.s.Deadline()
	r.clk.Advance(100 * time.Millisecond)
	r.s.Process()
	require.Equal(t, 1, r.s.Counts().Extensions)
	require.Equal(t, first.Add(5*time.Second), r.s.Deadline())

	// A forced re-close mid-extension gets its own extension.
	r.clk.Set(first.Add(time.Second))
	require.True(t, r.s.SetState(Closed, true))
	second := r.s.Deadline()
	assert.Equal(t, r.clk.Now().Add(30*time.Second), second)

	r.clk.Advance(100 * time.Millisecond)
	r.s.Process()
	assert.Equal(t, 2, r.s.Counts().Extensions)
	assert.Equal(t, second.Add(5*time.Second), r.s.Deadline())
	assert.True(t, r.s.Moving())
}

func TestStepperCloseConfirmedMidTravelKeepsExtension(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)
	r.sensor.SetValue(false)

	require.True(t, r.s.SetState(Closed, false))
	original := r.s.Deadline()

	r.clk.Advance(100 * time.Millisecond)
	r.s.Process()
	require.Equal(t, 1, r.s.Counts().Extensions)
	reads := r.sensor.Reads

	// The window reaches the closed end well before the timer runs out.
	r.sensor.SetValue(true)
	r.clk.Set(original.Add(-10 * time.Second))
	r.s.Process()
	assert.True(t, r.s.Moving())

	r.clk.Set(original)
	r.s.Process()
	assert.True(t, r.s.Moving(), "extension already granted")

	r.clk.Set(original.Add(5 * time.Second))
	r.s.Process()
	assert.False(t, r.s.Moving())
	assert.Equal(t, Closed, r.s.State())
	assert.Equal(t, 1, r.s.Counts().Extensions)
	assert.Equal(t, reads, r.sensor.Reads, "sensor not read after the extension")
}

func TestStepperCloseExtensionAtLateFirstPoll(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)
	r.sensor.SetValue(false)

	require.True(t, r.s.SetState(Closed, false))
	original := r.s.Deadline()

	// A stalled loop that first polls after the extended deadline still
	// completes on that poll.
	r.clk.Set(original.Add(6 * time.Second))
	r.s.Process()
	assert.False(t, r.s.Moving())
	assert.Equal(t, 1, r.s.Counts().Extensions)
}

func TestStepperPartialCloseIgnoresSensor(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)
	r.sensor.SetValue(false)
	reads := r.sensor.Reads

	require.True(t, r.s.SetState(1, false))
	r.clk.Set(r.s.Deadline())
	r.s.Process()
	assert.False(t, r.s.Moving())
	assert.Equal(t, reads, r.sensor.Reads)
	assert.Equal(t, 0, r.s.Counts().Extensions)
}

func TestStepperSensorErrorTreatedAsUnconfirmed(t *testing.T) {
	r := newStepperRig(t, 0)
	r.moveTo(t, 3)
	r.sensor.ReadError = errors.New("line gone")

	require.True(t, r.s.SetState(Closed, false))
	original := r.s.Deadline()
	r.s.Process()
	assert.Equal(t, 1, r.s.Counts().Extensions)

	r.clk.Set(original)
	r.s.Process()
	assert.True(t, r.s.Moving())

	r.clk.Set(original.Add(5 * time.Second))
	r.s.Process()
	assert.False(t, r.s.Moving(), "timer is authoritative after one extension")
}

func TestStepperRelayErrorStillCompletes(t *testing.T) {
	r := newStepperRig(t, 0)
	r.open.SetError = errors.New("relay fault")

	require.True(t, r.s.SetState(2, false))
	r.clk.Advance(16 * time.Second)
	r.s.Process()
	assert.Equal(t, Position(2), r.s.State())
	assert.Len(t, r.notes.calls, 1)
}

func TestStepperNilNotifier(t *testing.T) {
	s, err := NewStepper(testStepperConfig(), StepperHardware{
		ClosedSensor: gpio.NewFakeSensor(true),
		Open:         gpio.NewFakeRelay(),
		Close:        gpio.NewFakeRelay(),
	}, clock.NewFake(0), nil)
	require.NoError(t, err)

	require.True(t, s.SetState(1, false))
	s.clock.(*clock.Fake).Advance(8 * time.Second)
	assert.NotPanics(t, s.Process)
	assert.Equal(t, Position(1), s.State())
}

func TestStepperAcrossClockRollover(t *testing.T) {
	r := newStepperRig(t, math.MaxUint32-10000)

	require.True(t, r.s.SetState(3, false))
	assert.Less(t, uint32(r.s.Deadline()), uint32(24000), "deadline wrapped")

	r.clk.Advance(12 * time.Second)
	r.s.Process()
	assert.True(t, r.s.Moving(), "must not complete early when now > deadline numerically")

	r.clk.Advance(12 * time.Second)
	r.s.Process()
	assert.False(t, r.s.Moving())
	assert.Equal(t, Position(3), r.s.State())
}
