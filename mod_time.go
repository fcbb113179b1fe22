package sparkfield

import (
	"time"
)

type Time struct {
	Time time.Time
	Dt   time.Duration
}

// DtSeconds is the elapsed wall-clock time since the previous frame, in
// seconds, as fed to the compute kernel.
func (t *Time) DtSeconds() float32 {
	return float32(t.Dt.Seconds())
}

type TimeModule struct {
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time: time.Now(),
		Dt:   0,
	})
	app.UseSystem(
		System(timeSystem).
			InStage(Prelude).
			RunAlways(),
	)
}

func timeSystem(timeResource *Time) {
	now := time.Now()

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
}
