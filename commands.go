package sparkfield

type Commands struct {
	app *App
}

func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// Abort records a fatal error and requests the final state. The run loop
// finishes the current iteration, calls the shutdown systems, and returns
// the error from App.Run.
func (cmd *Commands) Abort(err error) *Commands {
	cmd.app.abort(err)
	return cmd
}
