// Package sim provides an in-memory device that implements device.Hardware. It is
// the default backend when no real hardware is configured, and the fixture used by
// tests to drive sensor readings and inspect actuator commands.
package sim

import (
	"fmt"
	"sync"

	"github.com/robbyt/go-devicefsm/device"
)

// ActionKind identifies a recorded call.
type ActionKind string

const (
	ActionFansOn      ActionKind = "fans_on"
	ActionFansOff     ActionKind = "fans_off"
	ActionSetOutput   ActionKind = "set_output"
	ActionInitBoard   ActionKind = "init_board"
	ActionInitOutputs ActionKind = "init_outputs"
)

// Action is one recorded actuator or board call.
type Action struct {
	Kind  ActionKind
	Level int // output level for ActionSetOutput; 1/0 success for ActionInitBoard
}

func (a Action) String() string {
	switch a.Kind {
	case ActionSetOutput, ActionInitBoard:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Level)
	default:
		return string(a.Kind)
	}
}

// Device is a simulated fan/output device.
type Device struct {
	mu sync.Mutex

	cover     bool
	tempC     float64
	userInput int
	coverErr  error
	tempErr   error
	inputErr  error
	bootFails int

	fans    bool
	output  int
	actions []Action
}

var _ device.Hardware = (*Device)(nil)

// New returns a device with the cover on, 25 °C and a full user setting.
func New() *Device {
	return &Device{
		cover:     true,
		tempC:     25,
		userInput: device.OutputNormal,
	}
}

// SetCover sets whether the cover is present.
func (d *Device) SetCover(present bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cover = present
}

// SetTemperature sets the temperature reading in degrees Celsius.
func (d *Device) SetTemperature(c float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tempC = c
}

// SetUserInput sets the user reading.
func (d *Device) SetUserInput(v int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userInput = v
}

// SetSensorErrors makes the given sensors fail until cleared with nil.
func (d *Device) SetSensorErrors(cover, temp, input error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.coverErr, d.tempErr, d.inputErr = cover, temp, input
}

// FailBoots makes the next n board initializations fail.
func (d *Device) FailBoots(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bootFails = n
}

// CoverPresent implements device.Sensors.
func (d *Device) CoverPresent() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cover, d.coverErr
}

// TemperatureC implements device.Sensors.
func (d *Device) TemperatureC() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tempC, d.tempErr
}

// UserInput implements device.Sensors.
func (d *Device) UserInput() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.userInput, d.inputErr
}

// FansOn implements device.Actuators.
func (d *Device) FansOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fans = true
	d.actions = append(d.actions, Action{Kind: ActionFansOn})
	return nil
}

// FansOff implements device.Actuators.
func (d *Device) FansOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fans = false
	d.actions = append(d.actions, Action{Kind: ActionFansOff})
	return nil
}

// SetOutput implements device.Actuators.
func (d *Device) SetOutput(level int) error {
	if level < device.OutputDisabled || level > device.OutputNormal {
		return fmt.Errorf("output level %d out of range", level)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.output = level
	d.actions = append(d.actions, Action{Kind: ActionSetOutput, Level: level})
	return nil
}

// InitBoard implements device.Board.
func (d *Device) InitBoard() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	ok := d.bootFails <= 0
	if !ok {
		d.bootFails--
	}
	level := 0
	if ok {
		level = 1
	}
	d.actions = append(d.actions, Action{Kind: ActionInitBoard, Level: level})
	return ok
}

// InitOutputs implements device.Board.
func (d *Device) InitOutputs() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fans = false
	d.output = device.OutputDisabled
	d.actions = append(d.actions, Action{Kind: ActionInitOutputs})
}

// FansRunning reports the last fan command.
func (d *Device) FansRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fans
}

// OutputLevel reports the last output level.
func (d *Device) OutputLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.output
}

// Actions returns a copy of the recorded calls.
func (d *Device) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Action, len(d.actions))
	copy(out, d.actions)
	return out
}

// ResetActions clears the recorded calls.
func (d *Device) ResetActions() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions = nil
}
