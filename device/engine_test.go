package device_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-devicefsm/device"
	"github.com/robbyt/go-devicefsm/hardware/mocks"
	"github.com/robbyt/go-devicefsm/hardware/sim"
)

func newEngine(t *testing.T, hw device.Hardware, opts ...device.Option) *device.Engine {
	t.Helper()
	opts = append([]device.Option{device.WithLogHandler(slog.NewTextHandler(io.Discard, nil))}, opts...)
	e, err := device.NewEngine(hw, opts...)
	require.NoError(t, err)
	return e
}

// startEngine starts e and requires that start-up settles without delayed events.
func startEngine(t *testing.T, e *device.Engine) []device.Step {
	t.Helper()
	steps, delayed, err := e.Start()
	require.NoError(t, err)
	require.Empty(t, delayed)
	return steps
}

func pump(t *testing.T, e *device.Engine, ev device.Event) []device.Step {
	t.Helper()
	steps, _, err := e.Pump(ev)
	require.NoError(t, err)
	return steps
}

func tick(t *testing.T, e *device.Engine) []device.Step {
	t.Helper()
	steps, _, err := e.Tick()
	require.NoError(t, err)
	return steps
}

func path(steps []device.Step) []device.State {
	if len(steps) == 0 {
		return nil
	}
	out := []device.State{steps[0].From}
	for _, s := range steps {
		out = append(out, s.To)
	}
	return out
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	_, err := device.NewEngine(nil)
	require.ErrorIs(t, err, device.ErrNoHardware)

	_, err = device.NewEngine(sim.New(), device.WithSettings(device.Settings{}))
	require.ErrorIs(t, err, device.ErrInvalidSettings)

	e := newEngine(t, sim.New())
	assert.Equal(t, device.PowerOnReset, e.State())
	assert.False(t, e.Previous().Present())
	assert.Equal(t, device.DefaultSettings(), e.Settings())
	assert.Equal(t, "Engine<state: power_on_reset>", e.String())

	_, err = e.Dispatch(device.PorDone)
	require.ErrorIs(t, err, device.ErrNotStarted)
}

func TestStart_BootsToNormal(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	e := newEngine(t, hw)

	steps := startEngine(t, e)
	assert.Equal(t,
		[]device.State{device.PowerOnReset, device.InitMain, device.Init, device.Normal},
		path(steps),
	)
	assert.Equal(t, device.Normal, e.State())
	assert.True(t, e.Previous().Is(device.Init))

	assert.Equal(t, []sim.Action{
		{Kind: sim.ActionInitBoard, Level: 1},
		{Kind: sim.ActionInitOutputs},
		{Kind: sim.ActionFansOn},
		{Kind: sim.ActionSetOutput, Level: device.OutputNormal},
	}, hw.Actions())

	snap := e.Snapshot()
	assert.Equal(t, device.OutputNormal, snap.Output)
	assert.True(t, snap.FansOn)
	assert.False(t, snap.Silent)

	_, _, err := e.Start()
	assert.Error(t, err, "second start")
}

func TestStart_SilentFlag(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	sw := device.NewSilentSwitch()
	sw.Set(true)
	e := newEngine(t, hw, device.WithSilentSwitch(sw))

	startEngine(t, e)
	assert.Equal(t, device.Silent, e.State())
	assert.False(t, hw.FansRunning())
	assert.Equal(t, device.OutputReduced, hw.OutputLevel())
}

func TestStart_FaultAtBoot(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	hw.SetCover(false)
	hw.SetTemperature(130)
	e := newEngine(t, hw)

	startEngine(t, e)
	assert.Equal(t, device.NoCover, e.State(), "cover takes precedence at boot")
	assert.Equal(t, device.OutputDisabled, hw.OutputLevel())

	hw.SetCover(true)
	hw.SetTemperature(20)
	tick(t, e)
	assert.Equal(t, device.Normal, e.State(), "no steady previous state, flag selects Normal")
}

func TestCoverRemovedAndRestored(t *testing.T) {
	t.Parallel()

	t.Run("by event", func(t *testing.T) {
		hw := sim.New()
		e := newEngine(t, hw)
		startEngine(t, e)

		steps := pump(t, e, device.CoverOff)
		assert.Equal(t, []device.State{device.Normal, device.NoCover}, path(steps))
		assert.False(t, hw.FansRunning())
		assert.Equal(t, device.OutputDisabled, hw.OutputLevel())

		hw.SetCover(true)
		pump(t, e, device.CoverOn)
		assert.Equal(t, device.Normal, e.State())
		assert.True(t, hw.FansRunning())
		assert.Equal(t, device.OutputNormal, hw.OutputLevel())
	})

	t.Run("by sampling", func(t *testing.T) {
		hw := sim.New()
		e := newEngine(t, hw)
		startEngine(t, e)

		hw.SetCover(false)
		tick(t, e)
		assert.Equal(t, device.NoCover, e.State())

		assert.Empty(t, tick(t, e), "nothing to report while the cover is still missing")
		assert.Equal(t, device.NoCover, e.State())

		hw.SetCover(true)
		tick(t, e)
		assert.Equal(t, device.Normal, e.State())
	})
}

func TestOverTempFromSilent(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	sw := device.NewSilentSwitch()
	sw.Set(true)
	e := newEngine(t, hw, device.WithSilentSwitch(sw))
	startEngine(t, e)
	require.Equal(t, device.Silent, e.State())

	hw.SetTemperature(120)
	pump(t, e, device.TemperatureHigh)
	assert.Equal(t, device.OverTemp, e.State())
	assert.True(t, hw.FansRunning())
	assert.Equal(t, device.OutputReduced, hw.OutputLevel())

	assert.Empty(t, tick(t, e), "still hot")

	hw.SetTemperature(60)
	tick(t, e)
	assert.Equal(t, device.Silent, e.State(), "resumes Silent, not Normal")
	assert.False(t, hw.FansRunning())
	assert.Equal(t, device.OutputReduced, hw.OutputLevel())
}

func TestRecoveryFidelity(t *testing.T) {
	t.Parallel()

	faults := []struct {
		name  string
		enter func(hw *sim.Device)
		clear func(hw *sim.Device)
	}{
		{
			name:  "no cover",
			enter: func(hw *sim.Device) { hw.SetCover(false) },
			clear: func(hw *sim.Device) { hw.SetCover(true) },
		},
		{
			name:  "over temp",
			enter: func(hw *sim.Device) { hw.SetTemperature(140) },
			clear: func(hw *sim.Device) { hw.SetTemperature(30) },
		},
	}

	for _, f := range faults {
		for _, silent := range []bool{false, true} {
			want := device.SteadyState(silent)
			t.Run(f.name+"/"+want.String(), func(t *testing.T) {
				t.Parallel()
				hw := sim.New()
				sw := device.NewSilentSwitch()
				sw.Set(silent)
				e := newEngine(t, hw, device.WithSilentSwitch(sw))
				startEngine(t, e)
				require.Equal(t, want, e.State())

				f.enter(hw)
				tick(t, e)
				require.True(t, e.State().IsFault())
				assert.True(t, e.Previous().Is(want))

				f.clear(hw)
				tick(t, e)
				assert.Equal(t, want, e.State())
			})
		}
	}
}

func TestBoardBootRetry(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	hw.FailBoots(2)
	e := newEngine(t, hw, device.WithSettings(device.Settings{
		MaxTempC:   device.DefaultMaxTempC,
		RetryDelay: 250 * time.Millisecond,
		InitResume: device.ResumeUnlessInitMain,
	}))

	steps, delayed, err := e.Start()
	require.NoError(t, err)
	assert.Equal(t, []device.State{device.PowerOnReset, device.InitMain, device.Halt}, path(steps))
	assert.Equal(t, []device.Followup{{Event: device.BoardBootRetry, After: 250 * time.Millisecond}}, delayed)

	steps, delayed, err = e.Pump(device.BoardBootRetry)
	require.NoError(t, err)
	assert.Equal(t, []device.State{device.Halt, device.InitMain, device.Halt}, path(steps))
	require.Len(t, delayed, 1)

	steps, delayed, err = e.Pump(device.BoardBootRetry)
	require.NoError(t, err)
	assert.Empty(t, delayed)
	assert.Equal(t, []device.State{device.Halt, device.InitMain, device.Init, device.Normal}, path(steps))

	boots := 0
	for _, a := range hw.Actions() {
		if a.Kind == sim.ActionInitBoard {
			boots++
		}
	}
	assert.Equal(t, 3, boots)
}

func TestOverTempEscalatesToNoCover(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	e := newEngine(t, hw)
	startEngine(t, e)

	hw.SetTemperature(110)
	tick(t, e)
	require.Equal(t, device.OverTemp, e.State())

	hw.SetCover(false)
	steps := tick(t, e)
	assert.Equal(t, []device.State{device.OverTemp, device.NoCover}, path(steps))
	assert.True(t, e.Previous().Is(device.Normal), "steady state survives the fault to fault move")
	assert.False(t, hw.FansRunning())
	assert.Equal(t, device.OutputDisabled, hw.OutputLevel())

	hw.SetTemperature(40)
	hw.SetCover(true)
	tick(t, e)
	assert.Equal(t, device.Normal, e.State())
}

func TestTemperatureHighWithoutCover(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	e := newEngine(t, hw)
	startEngine(t, e)

	hw.SetCover(false)
	hw.SetTemperature(150)
	pump(t, e, device.TemperatureHigh)
	assert.Equal(t, device.NoCover, e.State())
}

func TestSteadyStateRefresh(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	sw := device.NewSilentSwitch()
	e := newEngine(t, hw, device.WithSilentSwitch(sw))
	startEngine(t, e)

	hw.SetUserInput(65)
	steps := tick(t, e)
	require.Len(t, steps, 1)
	assert.Equal(t, device.Normal, steps[0].To)
	assert.False(t, steps[0].Ignored)
	assert.Equal(t, 65, hw.OutputLevel())
	assert.True(t, e.Previous().Is(device.Normal))

	hw.SetUserInput(250)
	tick(t, e)
	assert.Equal(t, device.OutputNormal, hw.OutputLevel(), "user input is clamped")

	sw.Set(true)
	hw.ResetActions()
	tick(t, e)
	assert.Equal(t, device.Silent, e.State(), "flag change seen on refresh")
	assert.Equal(t, []sim.Action{
		{Kind: sim.ActionFansOff},
		{Kind: sim.ActionSetOutput, Level: device.OutputReduced},
	}, hw.Actions())

	sw.Set(false)
	pump(t, e, device.SilentButton)
	assert.Equal(t, device.Normal, e.State())
}

func TestSensorFailuresFailSafe(t *testing.T) {
	t.Parallel()

	t.Run("cover read error", func(t *testing.T) {
		hw := sim.New()
		e := newEngine(t, hw)
		startEngine(t, e)

		hw.SetSensorErrors(errors.New("bus error"), nil, nil)
		tick(t, e)
		assert.Equal(t, device.NoCover, e.State())
	})

	t.Run("temperature read error", func(t *testing.T) {
		hw := sim.New()
		e := newEngine(t, hw)
		startEngine(t, e)

		hw.SetSensorErrors(nil, errors.New("bus error"), nil)
		tick(t, e)
		assert.Equal(t, device.OverTemp, e.State())
	})

	t.Run("user input error keeps output", func(t *testing.T) {
		hw := sim.New()
		e := newEngine(t, hw)
		startEngine(t, e)

		hw.SetUserInput(70)
		hw.SetSensorErrors(nil, nil, errors.New("bus error"))
		tick(t, e)
		assert.Equal(t, device.Normal, e.State())
		assert.Equal(t, device.OutputNormal, hw.OutputLevel())
	})
}

func TestIgnoredEvents(t *testing.T) {
	t.Parallel()

	hw := mocks.NewHardware()
	hw.On("InitBoard").Return(true)
	hw.On("InitOutputs").Return()
	hw.On("CoverPresent").Return(true, nil)
	hw.On("TemperatureC").Return(22.5, nil)
	hw.On("UserInput").Return(80, nil)
	hw.On("FansOn").Return(nil)
	hw.On("SetOutput", 80).Return(nil)

	e := newEngine(t, hw)
	startEngine(t, e)
	require.Equal(t, device.Normal, e.State())

	before := e.Snapshot()
	calls := len(hw.Calls)

	for _, ev := range []device.Event{
		device.PorDone,
		device.BoardBootRetry,
		device.BoardBootFail,
		device.BoardBootSuccess,
		device.BootSuccess,
		device.TemperatureNormal,
		device.CoverOn,
	} {
		step, err := e.Dispatch(ev)
		require.NoError(t, err)
		assert.True(t, step.Ignored, ev)
		assert.Equal(t, device.Normal, step.To)
	}

	assert.Equal(t, before, e.Snapshot())
	assert.Len(t, hw.Calls, calls, "ignored events touch no hardware")
	hw.AssertNotCalled(t, "FansOff")
	hw.AssertExpectations(t)
}

func TestDispatch_UnknownEvent(t *testing.T) {
	t.Parallel()

	e := newEngine(t, sim.New())
	startEngine(t, e)

	_, err := e.Dispatch(device.Event(99))
	require.ErrorIs(t, err, device.ErrUnknownEvent)
	assert.NotErrorIs(t, err, device.ErrFatal)
	assert.Equal(t, device.Normal, e.State())
}

func TestDeterminism(t *testing.T) {
	t.Parallel()

	script := func() ([]device.State, device.Snapshot) {
		hw := sim.New()
		e := newEngine(t, hw)
		var seen []device.State
		record := func(steps []device.Step) {
			for _, s := range steps {
				seen = append(seen, s.To)
			}
		}

		steps, _, err := e.Start()
		require.NoError(t, err)
		record(steps)

		hw.SetTemperature(101)
		record(tick(t, e))
		hw.SetCover(false)
		record(tick(t, e))
		hw.SetCover(true)
		record(tick(t, e))
		record(pump(t, e, device.UserInput))
		hw.SetTemperature(20)
		record(tick(t, e))
		record(pump(t, e, device.CoverOff))
		return seen, e.Snapshot()
	}

	firstPath, firstSnap := script()
	for range 5 {
		p, snap := script()
		assert.Equal(t, firstPath, p)
		assert.Equal(t, firstSnap, snap)
	}
}

func TestGetStateChan(t *testing.T) {
	t.Parallel()

	e := newEngine(t, sim.New())
	ch := e.GetStateChan(t.Context())
	startEngine(t, e)

	assert.Eventually(t, func() bool {
		for {
			select {
			case s := <-ch:
				if s == device.Normal.String() {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestGetStateChan_IdleSubscriberDoesNotDelayFaults(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	e := newEngine(t, hw)
	_ = e.GetStateChan(t.Context())

	start := time.Now()
	startEngine(t, e)
	assert.Equal(t, device.Normal, e.State())

	for range 20 {
		hw.SetCover(false)
		tick(t, e)
		require.Equal(t, device.NoCover, e.State())
		assert.Equal(t, device.OutputDisabled, hw.OutputLevel())
		assert.False(t, hw.FansRunning())

		hw.SetCover(true)
		tick(t, e)
		require.Equal(t, device.Normal, e.State())
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()

	hw := sim.New()
	e := newEngine(t, hw)
	startEngine(t, e)

	hw.SetTemperature(90)
	tick(t, e)
	assert.Equal(t, device.Normal, e.State())

	s := e.Settings()
	s.MaxTempC = 80
	require.NoError(t, e.UpdateSettings(s))
	tick(t, e)
	assert.Equal(t, device.OverTemp, e.State())

	s.RetryDelay = 0
	require.ErrorIs(t, e.UpdateSettings(s), device.ErrInvalidSettings)
	assert.InDelta(t, 80.0, e.Settings().MaxTempC, 0)
}
