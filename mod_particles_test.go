package sparkfield

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32At(t *testing.T, buf []byte, offset int) float32 {
	t.Helper()
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestPackSimParams(t *testing.T) {
	buf := packSimParams(0.016, 1000, mgl32.Vec2{-0.25, 0.75})

	require.Len(t, buf, 16)
	assert.InDelta(t, 0.016, f32At(t, buf, 0), 1e-7)
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(buf[4:8]))
	assert.InDelta(t, -0.25, f32At(t, buf, 8), 1e-7)
	assert.InDelta(t, 0.75, f32At(t, buf, 12), 1e-7)
}

func TestPackFrameParams(t *testing.T) {
	buf := packFrameParams(640, 480, 10.0)

	require.Len(t, buf, 16)
	assert.InDelta(t, 640.0, f32At(t, buf, 0), 1e-6)
	assert.InDelta(t, 480.0, f32At(t, buf, 4), 1e-6)
	assert.InDelta(t, 10.0, f32At(t, buf, 8), 1e-6)
}

func TestNewParticleSystemDefaults(t *testing.T) {
	mod := NewParticleSystem()

	assert.Equal(t, DefaultParticleCount, mod.Count)
	assert.Equal(t, mgl32.Vec2{0, 0}, mod.Origin)
	assert.InDelta(t, 0.205, mod.SpeedFactor, 1e-6)
	assert.Equal(t, [2]float32{1.5, 3.0}, mod.LifetimeRange)
	assert.InDelta(t, 10.0, mod.PointSize, 1e-6)
	assert.False(t, mod.Debug, "debug readback stalls the pipeline and must be opt-in")
}

func TestBackdropColor(t *testing.T) {
	black := backdropColor("black")
	assert.Equal(t, 0.0, black.R)
	assert.Equal(t, 1.0, black.A)

	white := backdropColor("white")
	assert.Equal(t, 1.0, white.R)
	assert.Equal(t, 1.0, white.G)
	assert.Equal(t, 1.0, white.B)

	// Unknown names fall back to black rather than failing the frame.
	assert.Equal(t, black, backdropColor("not-a-color"))
}
