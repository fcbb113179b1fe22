package sparkfield

import (
	"reflect"
)

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{app: &App{
		resources:        make(map[reflect.Type]any),
		systems:          make(map[string]map[State]map[statePhase][]systemFn),
		systemsStateless: make(map[string][]systemFn),
		stateful:         false,
	}}
}

func (b *AppBuilder) UseStates(initialState State, finalState State) *AppBuilder {
	b.app.stateful = true
	b.app.initialState = initialState
	b.app.finalState = finalState

	return b
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)

	return b
}

// Build initializes the default stages and installs every module.
// Stages must exist before modules register systems into them.
func (b *AppBuilder) Build() *App {
	app := b.app

	for _, stage := range []Stage{Prelude, PreUpdate, Update, PostUpdate, PreRender, Render, PostRender, Finale} {
		app.stages = append(app.stages, stage)
		app.initStatefulStage(stage)
	}

	commands := &Commands{app: app}
	for _, module := range b.modules {
		// A failed install is fatal; later modules would only panic on
		// missing resources. Run still returns the recorded error.
		if app.err != nil {
			break
		}
		module.Install(app, commands)
	}

	return app
}
