/*
The mocks package provides a testify/mock implementation of device.Hardware.

Example:
```go

	func TestMyComponent(t *testing.T) {
	    hw := mocks.NewHardware()
	    hw.On("CoverPresent").Return(true, nil)
	    hw.On("TemperatureC").Return(25.0, nil)

	    // drive the engine...

	    hw.AssertExpectations(t)
	}

```
*/
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/robbyt/go-devicefsm/device"
)

// Hardware is a mock implementation of device.Hardware.
type Hardware struct {
	mock.Mock
}

var _ device.Hardware = (*Hardware)(nil)

// NewHardware creates a new Hardware mock with no expectations.
func NewHardware() *Hardware {
	return &Hardware{}
}

// CoverPresent mocks device.Sensors.
func (m *Hardware) CoverPresent() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

// TemperatureC mocks device.Sensors.
func (m *Hardware) TemperatureC() (float64, error) {
	args := m.Called()
	return args.Get(0).(float64), args.Error(1)
}

// UserInput mocks device.Sensors.
func (m *Hardware) UserInput() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

// FansOn mocks device.Actuators.
func (m *Hardware) FansOn() error {
	return m.Called().Error(0)
}

// FansOff mocks device.Actuators.
func (m *Hardware) FansOff() error {
	return m.Called().Error(0)
}

// SetOutput mocks device.Actuators.
func (m *Hardware) SetOutput(level int) error {
	return m.Called(level).Error(0)
}

// InitBoard mocks device.Board.
func (m *Hardware) InitBoard() bool {
	return m.Called().Bool(0)
}

// InitOutputs mocks device.Board.
func (m *Hardware) InitOutputs() {
	m.Called()
}
