package device

// Sample reads the sensors and returns the event that describes the current
// condition, if it matters in the current state. Fault states get their clearing
// or escalation events here instead of waiting inside a handler; steady states get
// a UserInput event so outputs follow the user setting and the silent flag.
func (e *Engine) Sample() (Event, bool) {
	switch e.State() {
	case NoCover:
		if e.coverPresent() {
			return CoverOn, true
		}
	case OverTemp:
		if !e.coverPresent() {
			return CoverOff, true
		}
		if !e.temperatureHigh() {
			return TemperatureNormal, true
		}
	case Normal, Silent:
		return UserInput, true
	}
	return 0, false
}
