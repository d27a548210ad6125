package device

import "fmt"

// State is the operating state of the device. The set of states is closed;
// values outside it are programming defects and are rejected by the engine.
type State int

const (
	PowerOnReset State = iota
	Halt
	InitMain
	Init
	Normal
	Silent
	OverTemp
	NoCover
)

// States lists every member of the closed state set, in declaration order.
var States = []State{PowerOnReset, Halt, InitMain, Init, Normal, Silent, OverTemp, NoCover}

var stateNames = map[State]string{
	PowerOnReset: "power_on_reset",
	Halt:         "halt",
	InitMain:     "init_main",
	Init:         "init",
	Normal:       "normal",
	Silent:       "silent",
	OverTemp:     "over_temp",
	NoCover:      "no_cover",
}

// String returns the stable name of the state. The name doubles as the state key in
// the transition graph, so it must not change.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Valid reports whether s is a member of the closed state set.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// IsSteady reports whether s is reachable during fault-free operation.
func (s State) IsSteady() bool {
	return s == Normal || s == Silent
}

// IsFault reports whether s is entered on fault detection.
func (s State) IsFault() bool {
	return s == OverTemp || s == NoCover
}

// ParseState returns the State with the given name.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// Previous is an optional State. The zero value is absent, which keeps "no
// previous state" distinguishable from PowerOnReset.
type Previous struct {
	state State
	ok    bool
}

// NoPrevious is the absent value.
var NoPrevious = Previous{}

// PreviousOf wraps s as a present value.
func PreviousOf(s State) Previous {
	return Previous{state: s, ok: true}
}

// Get returns the wrapped state and whether it is present.
func (p Previous) Get() (State, bool) {
	return p.state, p.ok
}

// Present reports whether a state is held.
func (p Previous) Present() bool {
	return p.ok
}

// Is reports whether a state is held and equals s.
func (p Previous) Is(s State) bool {
	return p.ok && p.state == s
}

func (p Previous) String() string {
	if !p.ok {
		return "none"
	}
	return p.state.String()
}
