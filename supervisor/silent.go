package supervisor

// ToggleSilentAll flips silent mode on every runnable that implements
// SilentToggler and returns how many were toggled.
func (p *PIDZero) ToggleSilentAll() int {
	toggled := 0
	for _, r := range p.runnables {
		st, ok := r.(SilentToggler)
		if !ok {
			continue
		}
		silent := st.ToggleSilent()
		p.logger.Info("Silent mode toggled", "runnable", r, "silent", silent)
		toggled++
	}
	if toggled == 0 {
		p.logger.Debug("No runnable supports silent mode")
	}
	return toggled
}
