package device

import "fmt"

// Handler reacts to one event in one state and returns the next state. Returning
// c.Current is a self-transition: previous is updated but no entry action runs.
type Handler func(c *Context) State

// Entry registers a Handler for a (state, event) pair.
type Entry struct {
	State   State
	Event   Event
	Handler Handler
}

type tableKey struct {
	state State
	event Event
}

// Table is an ordered set of transition entries with unique (state, event) keys.
type Table struct {
	entries []Entry
	index   map[tableKey]Handler
}

// NewTable validates the entries and builds a Table. Every state in the closed set
// must have at least one entry, so no reachable state is a dead end.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[tableKey]Handler, len(entries)),
	}
	covered := make(map[State]bool, len(States))

	for i, e := range entries {
		if !e.State.Valid() {
			return nil, fmt.Errorf("%w: entry %d has state %s", ErrUnknownState, i, e.State)
		}
		if !e.Event.Valid() {
			return nil, fmt.Errorf("%w: entry %d has event %s", ErrUnknownEvent, i, e.Event)
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("%w: %s/%s", ErrNilHandler, e.State, e.Event)
		}
		k := tableKey{state: e.State, event: e.Event}
		if _, dup := t.index[k]; dup {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicateEntry, e.State, e.Event)
		}
		t.index[k] = e.Handler
		t.entries = append(t.entries, e)
		covered[e.State] = true
	}

	for _, s := range States {
		if !covered[s] {
			return nil, fmt.Errorf("%w: %s", ErrIncompleteTable, s)
		}
	}
	return t, nil
}

// Lookup returns the handler registered for the pair, if any.
func (t *Table) Lookup(s State, e Event) (Handler, bool) {
	h, ok := t.index[tableKey{state: s, event: e}]
	return h, ok
}

// Entries returns a copy of the entries in registration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// DefaultEntries returns the transition entries of the standard device.
func DefaultEntries() []Entry {
	return []Entry{
		{PowerOnReset, PorDone, toState(InitMain)},
		{InitMain, BoardBootSuccess, toState(Init)},
		{InitMain, BoardBootFail, toState(Halt)},
		{Halt, BoardBootRetry, toState(InitMain)},
		{Init, BootSuccess, handleInit},

		{Normal, UserInput, handleSteadyRefresh},
		{Normal, SilentButton, handleSteadyCheck},
		{Normal, CoverOff, toState(NoCover)},
		{Normal, TemperatureHigh, handleTemperatureHigh},

		{Silent, UserInput, handleSteadyRefresh},
		{Silent, SilentButton, handleSteadyCheck},
		{Silent, CoverOff, toState(NoCover)},
		{Silent, TemperatureHigh, handleTemperatureHigh},

		{OverTemp, CoverOff, toState(NoCover)},
		{OverTemp, TemperatureNormal, handleResume},

		{NoCover, CoverOn, handleResume},
	}
}

// DefaultTable returns the validated standard table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultEntries()...)
	if err != nil {
		panic(fmt.Sprintf("default transition table is invalid: %v", err))
	}
	return t
}

// Transitions is the graph of state changes the engine accepts. Self-transitions
// are always accepted and are not listed. A handler that returns a state outside
// this graph is a defect and stops the engine.
var Transitions = map[string][]string{
	PowerOnReset.String(): {InitMain.String()},
	InitMain.String():     {Init.String(), Halt.String()},
	Halt.String():         {InitMain.String()},
	Init.String():         {Normal.String(), Silent.String(), OverTemp.String(), NoCover.String()},
	Normal.String():       {Silent.String(), OverTemp.String(), NoCover.String()},
	Silent.String():       {Normal.String(), OverTemp.String(), NoCover.String()},
	OverTemp.String():     {NoCover.String(), Normal.String(), Silent.String()},
	NoCover.String():      {Normal.String(), Silent.String()},
}
