package device

import "time"

// Context is what a Handler sees when it is invoked.
type Context struct {
	Current  State
	Previous Previous
	Event    Event

	engine *Engine
}

// Hardware returns the device collaborators.
func (c *Context) Hardware() Hardware {
	return c.engine.hw
}

// DetectFault samples the sensors and returns the highest priority fault, if any.
func (c *Context) DetectFault() (State, bool) {
	return c.engine.detectFault()
}

// SteadyState returns the fault-free state selected by the current silent flag.
func (c *Context) SteadyState() State {
	return SteadyState(c.engine.silent.Silent())
}

// ResumeTarget is the state to return to when a fault clears: the steady state
// that was active before the fault, or the flag-selected one if none was.
func (c *Context) ResumeTarget() State {
	if s, ok := c.Previous.Get(); ok && s.IsSteady() {
		return s
	}
	return c.SteadyState()
}

// InitResume selects which previous states Init resumes directly.
type InitResume int

const (
	// ResumeUnlessInitMain resumes any present previous state except InitMain.
	ResumeUnlessInitMain InitResume = iota
	// ResumeOperationalOnly resumes only steady and fault states.
	ResumeOperationalOnly
)

func (r InitResume) String() string {
	switch r {
	case ResumeUnlessInitMain:
		return "unless_init_main"
	case ResumeOperationalOnly:
		return "operational_only"
	default:
		return "unknown"
	}
}

func (r InitResume) resumes(p Previous) bool {
	s, ok := p.Get()
	if !ok {
		return false
	}
	switch r {
	case ResumeOperationalOnly:
		return s.IsSteady() || s.IsFault()
	default:
		return s != InitMain
	}
}

func toState(next State) Handler {
	return func(*Context) State { return next }
}

// handleInit finishes start-up. An override previous state is resumed without
// fault detection; otherwise outputs are initialized and the device enters a fault
// or its steady state.
func handleInit(c *Context) State {
	e := c.engine
	if e.settings.InitResume.resumes(c.Previous) {
		s, _ := c.Previous.Get()
		e.logger.Info("Resuming previous state", "state", s)
		return s
	}

	e.logger.Info("Booted, initializing outputs")
	e.hw.InitOutputs()

	if fault, ok := c.DetectFault(); ok {
		return fault
	}
	return c.SteadyState()
}

// handleSteadyRefresh re-applies the steady state outputs from fresh readings and
// re-evaluates the silent flag, so a flag change is seen even without an event.
func handleSteadyRefresh(c *Context) State {
	if fault, ok := c.DetectFault(); ok {
		return fault
	}
	next := c.SteadyState()
	if next == c.Current {
		c.engine.applySteadyOutputs(next)
	}
	return next
}

func handleSteadyCheck(c *Context) State {
	if fault, ok := c.DetectFault(); ok {
		return fault
	}
	return c.SteadyState()
}

// handleTemperatureHigh still honours cover precedence.
func handleTemperatureHigh(c *Context) State {
	if !c.engine.coverPresent() {
		return NoCover
	}
	return OverTemp
}

func handleResume(c *Context) State {
	return c.ResumeTarget()
}

// Followup is an event the engine asks the driver to deliver, either right away
// or after a delay.
type Followup struct {
	Event Event
	After time.Duration
}

// enter runs the entry side effects of s and returns the events it produces.
func (e *Engine) enter(s State) []Followup {
	switch s {
	case PowerOnReset:
		e.logger.Info("Power-on reset")
		return []Followup{{Event: PorDone}}
	case InitMain:
		e.logger.Info("Initializing main board")
		if e.hw.InitBoard() {
			return []Followup{{Event: BoardBootSuccess}}
		}
		return []Followup{{Event: BoardBootFail}}
	case Halt:
		e.logger.Warn("Board initialization failed, retrying", "delay", e.settings.RetryDelay)
		return []Followup{{Event: BoardBootRetry, After: e.settings.RetryDelay}}
	case Init:
		return []Followup{{Event: BootSuccess}}
	case Normal, Silent:
		e.logger.Info("Entering steady state", "state", s)
		e.applySteadyOutputs(s)
	case OverTemp:
		e.logger.Warn("Temperature above threshold, reducing output", "maxTempC", e.settings.MaxTempC)
		e.setOutput(OutputReduced)
		e.setFans(true)
	case NoCover:
		e.logger.Warn("Cover removed, output disabled")
		e.setFans(false)
		e.setOutput(OutputDisabled)
	}
	return nil
}

// applySteadyOutputs drives the actuators for a steady state: Normal runs the fans
// and follows the user input, Silent stops the fans at reduced output.
func (e *Engine) applySteadyOutputs(s State) {
	if s == Silent {
		e.setFans(false)
		e.setOutput(OutputReduced)
		return
	}
	e.setFans(true)
	level, err := e.hw.UserInput()
	if err != nil {
		e.logger.Warn("User input read failed, keeping output", "error", err)
		return
	}
	e.setOutput(clampOutput(level))
}

func (e *Engine) setFans(on bool) {
	var err error
	if on {
		err = e.hw.FansOn()
	} else {
		err = e.hw.FansOff()
	}
	if err != nil {
		e.logger.Error("Fan command failed", "on", on, "error", err)
		return
	}
	e.mu.Lock()
	e.fans = on
	e.mu.Unlock()
}

func (e *Engine) setOutput(level int) {
	if err := e.hw.SetOutput(level); err != nil {
		e.logger.Error("Output command failed", "level", level, "error", err)
		return
	}
	e.mu.Lock()
	e.output = level
	e.mu.Unlock()
}
