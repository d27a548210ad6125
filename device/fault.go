package device

// DefaultMaxTempC is the over-temperature threshold used when none is configured.
const DefaultMaxTempC = 100.0

// DetectFault returns the fault state for the given readings, if any. A missing
// cover always wins over a high temperature.
func DetectFault(coverPresent bool, tempC, maxTempC float64) (State, bool) {
	if !coverPresent {
		return NoCover, true
	}
	if tempC > maxTempC {
		return OverTemp, true
	}
	return 0, false
}

// SteadyState maps the silent-mode flag to the fault-free operating state.
func SteadyState(silent bool) State {
	if silent {
		return Silent
	}
	return Normal
}

// coverPresent reads the cover sensor. A failed read is treated as a missing cover.
func (e *Engine) coverPresent() bool {
	present, err := e.hw.CoverPresent()
	if err != nil {
		e.logger.Warn("Cover sensor read failed, assuming cover removed", "error", err)
		return false
	}
	return present
}

// temperatureHigh reads the temperature sensor. A failed read counts as over threshold.
func (e *Engine) temperatureHigh() bool {
	temp, err := e.hw.TemperatureC()
	if err != nil {
		e.logger.Warn("Temperature sensor read failed, assuming over threshold", "error", err)
		return true
	}
	return temp > e.settings.MaxTempC
}

// detectFault samples the sensors and applies DetectFault. The temperature sensor
// is not read when the cover is missing.
func (e *Engine) detectFault() (State, bool) {
	if !e.coverPresent() {
		return NoCover, true
	}
	if e.temperatureHigh() {
		return OverTemp, true
	}
	return 0, false
}
