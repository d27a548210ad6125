package device

import "fmt"

// Event is something that happened to the device. Events only cause a transition
// when the table has an entry for the (current state, event) pair.
type Event int

const (
	PorDone Event = iota
	BoardBootRetry
	BoardBootFail
	BoardBootSuccess
	BootSuccess
	SilentButton
	TemperatureHigh
	TemperatureNormal
	CoverOff
	CoverOn
	UserInput
)

var eventNames = map[Event]string{
	PorDone:           "por_done",
	BoardBootRetry:    "board_boot_retry",
	BoardBootFail:     "board_boot_fail",
	BoardBootSuccess:  "board_boot_success",
	BootSuccess:       "boot_success",
	SilentButton:      "silent_button",
	TemperatureHigh:   "temperature_high",
	TemperatureNormal: "temperature_normal",
	CoverOff:          "cover_off",
	CoverOn:           "cover_on",
	UserInput:         "user_input",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Valid reports whether e is a known event.
func (e Event) Valid() bool {
	_, ok := eventNames[e]
	return ok
}

// ParseEvent returns the Event with the given name.
func ParseEvent(name string) (Event, error) {
	for e, n := range eventNames {
		if n == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}
