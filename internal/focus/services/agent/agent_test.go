package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/studywith/focuslink/internal/focus/domain"
)

type fakeRuntime struct {
	installed []func(context.Context) error
	startup   []func(context.Context) error
	listeners []func(context.Context, domain.Alarm)
	alarms    map[string]time.Duration
	creates   int
	createErr error
}

func (f *fakeRuntime) OnInstalled(fn func(context.Context) error) {
	f.installed = append(f.installed, fn)
}

func (f *fakeRuntime) OnStartup(fn func(context.Context) error) {
	f.startup = append(f.startup, fn)
}

func (f *fakeRuntime) OnAlarm(fn func(context.Context, domain.Alarm)) {
	f.listeners = append(f.listeners, fn)
}

func (f *fakeRuntime) CreateAlarm(name string, period time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.alarms == nil {
		f.alarms = map[string]time.Duration{}
	}
	f.alarms[name] = period
	f.creates++
	return nil
}

func (f *fakeRuntime) fire(name string) {
	for _, fn := range f.listeners {
		fn(context.Background(), domain.Alarm{Name: name})
	}
}

type MockRunner struct{ mock.Mock }

func (m *MockRunner) Run(ctx context.Context) domain.CycleReport {
	return m.Called(ctx).Get(0).(domain.CycleReport)
}

func newAgent(rt *fakeRuntime, runner CycleRunner) *Agent {
	return New(Options{Runtime: rt, Runner: runner, AlarmName: "focus-enforcement", Period: 3 * time.Second})
}

func TestRegister_EnsuresAlarmOnInstallAndStartup(t *testing.T) {
	rt := &fakeRuntime{}
	newAgent(rt, &MockRunner{}).Register()

	require.Len(t, rt.installed, 1)
	require.Len(t, rt.startup, 1)
	require.Len(t, rt.listeners, 1)

	require.NoError(t, rt.installed[0](context.Background()))
	require.NoError(t, rt.startup[0](context.Background()))
	require.NoError(t, rt.startup[0](context.Background()))

	assert.Len(t, rt.alarms, 1, "same name overwrites")
	assert.Equal(t, 3*time.Second, rt.alarms["focus-enforcement"])
	assert.Equal(t, 3, rt.creates)
}

func TestEnsureAlarm_Error(t *testing.T) {
	rt := &fakeRuntime{createErr: errors.New("db closed")}
	assert.Error(t, newAgent(rt, &MockRunner{}).EnsureAlarm(context.Background()))
}

func TestHandleAlarm_FiltersByName(t *testing.T) {
	rt := &fakeRuntime{}
	runner := &MockRunner{}
	runner.On("Run", mock.Anything).Return(domain.CycleReport{Tabs: 2, Blocked: 1})
	newAgent(rt, runner).Register()

	rt.fire("something-else")
	runner.AssertNotCalled(t, "Run", mock.Anything)

	rt.fire("focus-enforcement")
	runner.AssertNumberOfCalls(t, "Run", 1)
}

func TestHandleAlarm_SkippedCycle(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything).Return(domain.CycleReport{Skipped: true, Reason: domain.SkipFetchFailed})
	a := newAgent(&fakeRuntime{}, runner)

	a.HandleAlarm(context.Background(), domain.Alarm{Name: "focus-enforcement"})
	runner.AssertExpectations(t)
}
