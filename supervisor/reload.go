/*
Copyright 2024 Robert Terhaar <robbyt@robbyt.net>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package supervisor

import "sync"

// ReloadAll asks the reload manager to reload every Reloadable runnable. It
// returns false without blocking if the supervisor is shutting down.
func (p *PIDZero) ReloadAll() bool {
	select {
	case p.reloadListener <- struct{}{}:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// startReloadManager serializes reloads. Requests come from SIGHUP and from any
// runnable implementing ReloadSender, such as the status server's reload endpoint.
func (p *PIDZero) startReloadManager() {
	p.logger.Debug("Starting reload manager...")

	var senders sync.WaitGroup
	for _, r := range p.runnables {
		rs, ok := r.(ReloadSender)
		if !ok {
			continue
		}
		senders.Go(func() {
			p.forwardReloads(r, rs)
		})
	}

	for {
		select {
		case <-p.ctx.Done():
			senders.Wait()
			p.logger.Debug("Reload manager stopped")
			return
		case <-p.reloadListener:
			n := p.reloadAllRunnables()
			p.logger.Info("Reload complete", "runnablesReloaded", n)
		}
	}
}

func (p *PIDZero) forwardReloads(r Runnable, rs ReloadSender) {
	trigger := rs.GetReloadTrigger()
	for {
		select {
		case <-p.ctx.Done():
			return
		case _, ok := <-trigger:
			if !ok {
				return
			}
			p.logger.Debug("Reload requested", "runnable", r)
			if !p.ReloadAll() {
				return
			}
		}
	}
}

func (p *PIDZero) reloadAllRunnables() int {
	n := 0
	for _, r := range p.runnables {
		reloader, ok := r.(Reloadable)
		if !ok {
			continue
		}
		p.logger.Debug("Reloading", "runnable", r)
		reloader.Reload()
		n++

		if s, ok := r.(Stateable); ok {
			p.stateMap.Store(r, s.GetState())
		}
	}
	return n
}
