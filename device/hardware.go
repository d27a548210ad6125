package device

// Output levels are the only numeric contract visible outside the device.
const (
	OutputDisabled = 0
	OutputReduced  = 40
	OutputNormal   = 100
)

// Sensors reads the device inputs.
type Sensors interface {
	// CoverPresent reports whether the safety cover is in place.
	CoverPresent() (bool, error)
	// TemperatureC returns the instantaneous temperature in degrees Celsius.
	TemperatureC() (float64, error)
	// UserInput returns the raw user setting, applied directly as the output level.
	UserInput() (int, error)
}

// Actuators drives the device outputs. All methods must be idempotent.
type Actuators interface {
	FansOn() error
	FansOff() error
	// SetOutput sets the output level, 0 (disabled) to 100 (normal).
	SetOutput(level int) error
}

// Board brings up the controller hardware.
type Board interface {
	// InitBoard initializes the main logic board and reports success.
	InitBoard() bool
	// InitOutputs puts the outputs in their power-up configuration.
	InitOutputs()
}

// Hardware is everything the engine consumes from the device.
type Hardware interface {
	Sensors
	Actuators
	Board
}

// clampOutput limits a raw user reading to the valid output range.
func clampOutput(level int) int {
	switch {
	case level < OutputDisabled:
		return OutputDisabled
	case level > OutputNormal:
		return OutputNormal
	default:
		return level
	}
}
