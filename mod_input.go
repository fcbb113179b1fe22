package sparkfield

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Pointer is the per-frame input snapshot. It is rebuilt by pointerSystem
// before any simulation system runs, so the frame driver never shares
// mutable pointer state with a window callback.
type Pointer struct {
	// raw cursor position in pixels, origin top-left
	X, Y float64

	// cursor position in normalized device coordinates, origin center,
	// y up: x' = 2x/w - 1, y' = 1 - 2y/h
	NDC mgl32.Vec2

	// framebuffer size in pixels
	Width, Height int

	// the window's should-close signal
	Close bool
}

type PointerModule struct{}

func (mod PointerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Pointer{})
	app.UseSystem(
		System(pointerSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
	app.UseSystem(
		System(closeSystem).
			InStage(PreUpdate).
			InState(OnExecute(StateRunning)),
	)
}

// NormalizePointer maps a pixel coordinate to normalized device coordinates.
// The surface center maps to (0,0), the top-left pixel to (-1,1) and the
// bottom-right corner to (1,-1).
func NormalizePointer(x, y float64, width, height int) mgl32.Vec2 {
	return mgl32.Vec2{
		float32(2.0*x/float64(width) - 1.0),
		float32(1.0 - 2.0*y/float64(height)),
	}
}

func pointerSystem(s *WindowState, pointer *Pointer) {
	glfw.PollEvents()

	mx, my := s.windowGlfw.GetCursorPos()
	pointer.X = mx
	pointer.Y = my

	pointer.Width, pointer.Height = s.windowGlfw.GetFramebufferSize()
	if pointer.Width > 0 && pointer.Height > 0 {
		pointer.NDC = NormalizePointer(mx, my, pointer.Width, pointer.Height)
	}

	pointer.Close = s.windowGlfw.ShouldClose()
}

func closeSystem(pointer *Pointer, cmd *Commands) {
	if pointer.Close {
		cmd.ChangeState(StateShuttingDown)
	}
}
