package sparkfield

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_changeState(t *testing.T) {
	app := &App{
		stateful:     true,
		initialState: 1,
		state:        1,
		finalState:   2,
	}

	// Test changing state
	app.changeState(2)
	if app.nextState != State(2) {
		t.Errorf("The nextState should be set correctly.")
	}
	if !app.stateTransitioning {
		t.Errorf("The stateTransitioning flag should be true.")
	}

	// Test executing state change
	app.executeChangeState(2)
	if app.state != State(2) {
		t.Errorf("The app state should change correctly.")
	}
}

func TestApp_addResources(t *testing.T) {
	// Test setup
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	// Add a resource
	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1) // Try adding resource1 again, should panic
	})

	// Add a resource
	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
}

// driverModule walks the app through the full state machine: Initializing
// transitions to Running, Running counts a few frames, then requests
// ShuttingDown.
type driverModule struct {
	frames   int
	started  bool
	shutdown bool
}

func (m *driverModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(func(cmd *Commands) {
			m.started = true
			cmd.ChangeState(StateRunning)
		}).InStage(Update).InState(OnExecute(StateInitializing)),
	)
	app.UseSystem(
		System(func(cmd *Commands) {
			m.frames++
			if m.frames >= 3 {
				cmd.ChangeState(StateShuttingDown)
			}
		}).InStage(Update).InState(OnExecute(StateRunning)),
	)
	app.UseSystem(
		System(func(cmd *Commands) {
			m.shutdown = true
		}).InStage(Finale).InState(OnExit(StateShuttingDown)),
	)
}

func TestApp_RunStateMachine(t *testing.T) {
	mod := &driverModule{}
	app := NewAppBuilder().
		UseStates(StateInitializing, StateShuttingDown).
		UseModule(mod).
		Build()

	err := app.Run()

	require.NoError(t, err)
	assert.True(t, mod.started, "Initializing systems should run")
	assert.Equal(t, 3, mod.frames, "Running systems should run until shutdown is requested")
	assert.True(t, mod.shutdown, "exit systems of the final state should run")
}

type abortModule struct {
	ranWhileBroken bool
}

func (m *abortModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(func(cmd *Commands) {
			cmd.Abort(errors.New("pipeline build failed"))
		}).InStage(Update).InState(OnExecute(StateInitializing)),
	)
	app.UseSystem(
		System(func(cmd *Commands) {
			m.ranWhileBroken = true
		}).InStage(Update).InState(OnExecute(StateRunning)),
	)
}

func TestApp_RunAbortNeverEntersRunning(t *testing.T) {
	mod := &abortModule{}
	app := NewAppBuilder().
		UseStates(StateInitializing, StateShuttingDown).
		UseModule(mod).
		Build()

	err := app.Run()

	require.Error(t, err)
	assert.EqualError(t, err, "pipeline build failed")
	assert.False(t, mod.ranWhileBroken, "Running systems must not execute after a fatal error")
}

func TestApp_RunAbortAtInstall(t *testing.T) {
	// A module that fails during Install (e.g. window creation) must make
	// Run return immediately without ever calling enter/execute systems.
	executed := false
	app := NewAppBuilder().
		UseStates(StateInitializing, StateShuttingDown).
		Build()
	app.UseSystem(
		System(func(cmd *Commands) {
			executed = true
		}).InStage(Update).InState(OnEnter(StateInitializing)),
	)
	app.Commands().Abort(errors.New("no surface"))

	err := app.Run()

	require.EqualError(t, err, "no surface")
	assert.False(t, executed)
}

func TestApp_callSystemResolvesResources(t *testing.T) {
	app := NewAppBuilder().Build()
	app.addResources(NewMockResource1("injected"))

	var got string
	app.callSystem(func(r *MockResource1, cmd *Commands) {
		got = r.name
	})

	assert.Equal(t, "injected", got)
}

func TestApp_callSystemUnresolvableDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()

	require.Panics(t, func() {
		app.callSystem(func(r *MockResource2) {})
	})
}

func TestApp_LoggerFallsBackToNop(t *testing.T) {
	var app *App
	assert.NotNil(t, app.Logger(), "nil app must still return a usable logger")

	app = NewAppBuilder().Build()
	assert.NotNil(t, app.Logger())

	logger := NewDefaultLogger("test", false)
	app.addResources(logger)
	assert.Equal(t, Logger(logger), app.Logger())
}
