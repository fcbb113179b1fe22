package sparkfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePointer(t *testing.T) {
	const w, h = 640, 480

	center := NormalizePointer(w/2, h/2, w, h)
	assert.InDelta(t, 0.0, center.X(), 1e-6)
	assert.InDelta(t, 0.0, center.Y(), 1e-6)

	topLeft := NormalizePointer(0, 0, w, h)
	assert.InDelta(t, -1.0, topLeft.X(), 1e-6)
	assert.InDelta(t, 1.0, topLeft.Y(), 1e-6)

	bottomRight := NormalizePointer(w, h, w, h)
	assert.InDelta(t, 1.0, bottomRight.X(), 1e-6)
	assert.InDelta(t, -1.0, bottomRight.Y(), 1e-6)
}

func TestNormalizePointer_NonSquareSurface(t *testing.T) {
	// The mapping is per-axis; aspect ratio must not leak between axes.
	p := NormalizePointer(300, 100, 1200, 400)
	assert.InDelta(t, -0.5, p.X(), 1e-6)
	assert.InDelta(t, 0.5, p.Y(), 1e-6)
}
