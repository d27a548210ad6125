/*
Package mocks provides testify/mock implementations of the supervisor interfaces.

Example:
```go

	func TestSupervisor(t *testing.T) {
	    svc := mocks.NewMockRunnable()
	    svc.On("Run", mock.Anything).Return(nil)
	    svc.On("Stop").Once()
	    svc.On("String").Return("svc")

	    pid0, _ := supervisor.New(supervisor.WithRunnables(svc))
	    // run the supervisor...

	    svc.AssertExpectations(t)
	}

```
*/
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

const defaultDelay = time.Millisecond

// MockRunnable implements Runnable, Reloadable and Stateable. Run blocks until
// its context is canceled unless RunReturnsImmediately is set.
type MockRunnable struct {
	mock.Mock
	DelayRun              time.Duration
	DelayStop             time.Duration
	RunReturnsImmediately bool
}

// NewMockRunnable creates a MockRunnable with a short Run and Stop delay.
func NewMockRunnable() *MockRunnable {
	return &MockRunnable{
		DelayRun:  defaultDelay,
		DelayStop: defaultDelay,
	}
}

// Run records the call, then waits for ctx unless RunReturnsImmediately is set.
func (m *MockRunnable) Run(ctx context.Context) error {
	time.Sleep(m.DelayRun)
	err := m.Called(ctx).Error(0)
	if err != nil || m.RunReturnsImmediately {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop records the call.
func (m *MockRunnable) Stop() {
	time.Sleep(m.DelayStop)
	m.Called()
}

// Reload records the call.
func (m *MockRunnable) Reload() {
	m.Called()
}

// GetState returns the configured state.
func (m *MockRunnable) GetState() string {
	return m.Called().String(0)
}

// GetStateChan returns the configured channel.
func (m *MockRunnable) GetStateChan(ctx context.Context) <-chan string {
	return m.Called(ctx).Get(0).(chan string)
}

// String returns the configured name, or "MockRunnable" when none is set.
func (m *MockRunnable) String() string {
	if args := m.Called(); args.Get(0) != nil {
		return args.String(0)
	}
	return "MockRunnable"
}

// MockRunnableWithReload also implements ReloadSender.
type MockRunnableWithReload struct {
	*MockRunnable
}

// NewMockRunnableWithReload creates a MockRunnableWithReload.
func NewMockRunnableWithReload() *MockRunnableWithReload {
	return &MockRunnableWithReload{MockRunnable: NewMockRunnable()}
}

// GetReloadTrigger returns the configured channel.
func (m *MockRunnableWithReload) GetReloadTrigger() <-chan struct{} {
	return m.Called().Get(0).(chan struct{})
}

// MockRunnableWithSilent also implements SilentToggler.
type MockRunnableWithSilent struct {
	*MockRunnable
}

// NewMockRunnableWithSilent creates a MockRunnableWithSilent.
func NewMockRunnableWithSilent() *MockRunnableWithSilent {
	return &MockRunnableWithSilent{MockRunnable: NewMockRunnable()}
}

// ToggleSilent returns the configured value.
func (m *MockRunnableWithSilent) ToggleSilent() bool {
	return m.Called().Bool(0)
}
