package sparkfield

import (
	"errors"
	"testing"
)

type MockModule struct {
	installed bool
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed = true
}

func TestAppBuilder_Stateless(t *testing.T) {
	builder := NewAppBuilder()
	app := builder.Build()

	if app.stateful != false {
		t.Errorf("Expected stateful to be false, got %v", app.stateful)
	}
	if app.initialState != 0 {
		t.Errorf("Expected initialState to be 0, got %v", app.initialState)
	}
	if app.finalState != 0 {
		t.Errorf("Expected finalState to be 0, got %v", app.finalState)
	}
}

func TestAppBuilder_UseStates(t *testing.T) {
	builder := NewAppBuilder()
	builder.UseStates(StateInitializing, StateShuttingDown)

	app := builder.Build()

	if app.stateful != true {
		t.Errorf("Expected stateful to be true, got %v", app.stateful)
	}
	if app.initialState != StateInitializing {
		t.Errorf("Expected initialState to be %v, got %v", StateInitializing, app.initialState)
	}
	if app.finalState != StateShuttingDown {
		t.Errorf("Expected finalState to be %v, got %v", StateShuttingDown, app.finalState)
	}
}

func TestAppBuilder_UseModule(t *testing.T) {
	builder := NewAppBuilder()
	mockModule := &MockModule{}
	builder.UseModule(mockModule)

	if len(builder.modules) != 1 {
		t.Errorf("Expected modules to contain 1 module, got %v", len(builder.modules))
	}
}

func TestAppBuilder_Build_WithModules(t *testing.T) {
	builder := NewAppBuilder()
	module := &MockModule{}
	builder.UseModule(module)

	builder.Build()

	if !module.installed {
		t.Errorf("Expected Install to be called on the module, but it was not")
	}
}

func TestAppBuilder_Build_InitializesStages(t *testing.T) {
	app := NewAppBuilder().Build()

	if len(app.stages) != 8 {
		t.Errorf("Expected 8 default stages, got %v", len(app.stages))
	}
	if app.stages[0].Name != Prelude.Name {
		t.Errorf("Expected first stage to be Prelude, got %v", app.stages[0].Name)
	}
	if app.stages[len(app.stages)-1].Name != Finale.Name {
		t.Errorf("Expected last stage to be Finale, got %v", app.stages[len(app.stages)-1].Name)
	}
	for _, stage := range app.stages {
		if _, ok := app.systemsStateless[stage.Name]; !ok {
			t.Errorf("Stage %v has no stateless system slot", stage.Name)
		}
	}
}

type failingModule struct{}

func (failingModule) Install(app *App, cmd *Commands) {
	cmd.Abort(errInstall)
}

var errInstall = errors.New("install failed")

func TestAppBuilder_Build_StopsInstallAfterAbort(t *testing.T) {
	late := &MockModule{}

	app := NewAppBuilder().
		UseStates(StateInitializing, StateShuttingDown).
		UseModule(failingModule{}, late).
		Build()

	if late.installed {
		t.Errorf("Modules after a failed install must not be installed")
	}
	if err := app.Run(); err != errInstall {
		t.Errorf("Expected Run to return the install error, got %v", err)
	}
}

func TestAppBuilder_Build_WithMultipleModules(t *testing.T) {
	module1 := &MockModule{}
	module2 := &MockModule{}

	builder := NewAppBuilder()
	builder.UseModule(module1)
	builder.UseModule(module2)

	builder.Build()

	if len(builder.modules) != 2 {
		t.Errorf("Expected 2 modules, got %v", len(builder.modules))
	}
	if !module1.installed {
		t.Errorf("Expected Install to be called on the module 1, but it was not")
	}
	if !module2.installed {
		t.Errorf("Expected Install to be called on the module 2, but it was not")
	}
}
