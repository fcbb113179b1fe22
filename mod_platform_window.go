package sparkfield

import (
	"reflect"
)

// PlatformWindowModule ensures a single shared GLFW window (WindowState) and
// GPU device (GpuState) are created and made available as resources.
// Install is idempotent: if a WindowState resource already exists, it is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewPlatformWindow creates a module that provides shared WindowState and
// GpuState resources. If Width/Height are zero, sensible defaults are used.
func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	if title == "" {
		title = "Sparkfield"
	}
	return &PlatformWindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

// Install provides the WindowState and GpuState resources if missing.
// Window or device creation failure is fatal: the app never leaves the
// Initializing state and Run returns the error.
func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	t := reflect.TypeOf((*WindowState)(nil)).Elem()
	if _, ok := app.resources[t]; ok {
		// Already created by another module (or user code); no-op to preserve single-window invariant.
		return
	}

	ws, err := createWindowState(m.Width, m.Height, m.Title)
	if err != nil {
		cmd.Abort(err)
		return
	}

	gs, err := createGpuState(ws)
	if err != nil {
		ws.destroy()
		cmd.Abort(err)
		return
	}

	app.addResources(ws, gs)

	app.UseSystem(
		System(releasePlatformSystem).
			InStage(Finale).
			InState(OnExit(StateShuttingDown)),
	)
}

// releasePlatformSystem runs last during shutdown, after every module that
// holds GPU objects has released them.
func releasePlatformSystem(ws *WindowState, gs *GpuState) {
	gs.release()
	ws.destroy()
}
