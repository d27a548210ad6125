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

import (
	"context"
	"sync"
)

// StateMap maps a runnable's String() to its last reported state.
type StateMap map[string]string

// GetCurrentStates queries every Stateable runnable directly.
func (p *PIDZero) GetCurrentStates() StateMap {
	states := make(StateMap)
	for _, r := range p.runnables {
		if s, ok := r.(Stateable); ok {
			states[r.String()] = s.GetState()
		}
	}
	return states
}

// GetStateMap returns the cached states recorded by the state monitor.
func (p *PIDZero) GetStateMap() StateMap {
	states := make(StateMap)
	p.stateMap.Range(func(key, value any) bool {
		states[key.(Runnable).String()] = value.(string)
		return true
	})
	return states
}

// SubscribeStateChanges returns a channel that receives the StateMap on every
// state change. The current map is sent first if the channel has room. The channel
// is closed when ctx is done.
func (p *PIDZero) SubscribeStateChanges(ctx context.Context) <-chan StateMap {
	ch := make(chan StateMap, 10)

	p.subscriberMutex.Lock()
	p.stateSubscribers.Store(ch, struct{}{})
	select {
	case ch <- p.GetStateMap():
	default:
	}
	p.subscriberMutex.Unlock()

	go func() {
		<-ctx.Done()
		p.subscriberMutex.Lock()
		p.stateSubscribers.Delete(ch)
		p.subscriberMutex.Unlock()
		close(ch)
	}()
	return ch
}

func (p *PIDZero) broadcastState() {
	p.subscriberMutex.Lock()
	defer p.subscriberMutex.Unlock()

	states := p.GetStateMap()
	if len(states) == 0 {
		return
	}
	p.stateSubscribers.Range(func(key, _ any) bool {
		select {
		case key.(chan StateMap) <- states:
		default:
			p.logger.Warn("Subscriber channel is full; skipping broadcast")
		}
		return true
	})
}

// startStateMonitor follows the state channel of every Stateable runnable, caches
// the latest value and broadcasts changes. It blocks until the supervisor stops.
func (p *PIDZero) startStateMonitor() {
	var wg sync.WaitGroup
	for _, r := range p.runnables {
		s, ok := r.(Stateable)
		if !ok {
			continue
		}
		wg.Go(func() {
			p.monitorState(r, s)
		})
	}
	<-p.ctx.Done()
	wg.Wait()
	p.logger.Debug("State monitor stopped")
}

func (p *PIDZero) monitorState(r Runnable, s Stateable) {
	states := s.GetStateChan(p.ctx)
	var last string
	if v, ok := p.stateMap.Load(r); ok {
		last = v.(string)
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if state == last {
				continue
			}
			p.stateMap.Store(r, state)
			p.logger.Debug("State changed", "runnable", r, "from", last, "to", state)
			last = state
			p.broadcastState()
		}
	}
}
