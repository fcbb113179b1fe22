package sparkfield

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Fixed number of particle records; the GPU buffer is sized once and
	// never grows.
	DefaultParticleCount = 1000

	// Must match @workgroup_size in particles_update.wgsl.
	ParticleWorkgroupSize = 10

	// Byte stride of one particle record on the GPU.
	ParticleStride = 48
)

// Kernel constants, mirrored from particles_update.wgsl.
const (
	attractStrength float32 = 2.0
	dragFactor      float32 = 0.5
)

// Particle is one record of the GPU state buffer. Field order and packing
// must match the WGSL Particle struct; the tail padding exists because WGSL
// rounds the struct stride up to the 16-byte alignment of its vec4 member.
// Velocity, age and lifetime sit between and after the vertex attributes
// and are skipped by the draw stage.
type Particle struct {
	Pos   mgl32.Vec2 `spark:"layout" format:"float2" location:"0"`
	Vel   mgl32.Vec2
	Color mgl32.Vec4 `spark:"layout" format:"float4" location:"1"`
	Age   float32
	Life  float32
	_     [2]float32
}

// SeedConfig holds the distributions used once at startup.
type SeedConfig struct {
	Count       int
	Origin      mgl32.Vec2 // every particle starts here, not at the pointer
	SpeedFactor float32    // |velocity| of every fresh particle
	LifeMin     float32    // seconds
	LifeMax     float32    // seconds
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// seedParticles builds the initial particle records. Pure construction:
// the caller uploads the slice once and must not treat it as live state
// afterwards. Direction comes from two independent uniform axis samples,
// normalized; color channels are uniform in [0,1] with alpha 1; lifetime
// is uniform in [LifeMin, LifeMax]; age starts at zero.
func seedParticles(cfg SeedConfig, rng *rand.Rand) []Particle {
	particles := make([]Particle, cfg.Count)
	for i := range particles {
		dir := mgl32.Vec2{
			lerp(-1, 1, rng.Float32()),
			lerp(-1, 1, rng.Float32()),
		}
		for dir.Len() < 1e-6 {
			dir = mgl32.Vec2{
				lerp(-1, 1, rng.Float32()),
				lerp(-1, 1, rng.Float32()),
			}
		}
		dir = dir.Normalize()

		particles[i] = Particle{
			Pos:   cfg.Origin,
			Vel:   dir.Mul(cfg.SpeedFactor),
			Color: mgl32.Vec4{rng.Float32(), rng.Float32(), rng.Float32(), 1.0},
			Age:   0,
			Life:  lerp(cfg.LifeMin, cfg.LifeMax, rng.Float32()),
		}
	}
	return particles
}

// stepParticle is the CPU mirror of the update kernel, kept in lockstep
// with particles_update.wgsl so the force law stays testable without a
// device. Expired particles keep integrating with alpha clamped to zero.
func stepParticle(p Particle, pointer mgl32.Vec2, dt float32) Particle {
	accel := pointer.Sub(p.Pos).Mul(attractStrength)
	vel := p.Vel.Add(accel.Mul(dt)).Mul(1.0 / (1.0 + dragFactor*dt))

	p.Pos = p.Pos.Add(vel.Mul(dt))
	p.Vel = vel
	p.Age += dt

	alpha := 1.0 - p.Age/p.Life
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}
	p.Color[3] = alpha
	return p
}

// workgroupCount returns ceil(n / groupSize), the number of work-groups
// needed to cover every particle. Anything less silently drops updates to
// the tail of the buffer.
func workgroupCount(n, groupSize int) int {
	return (n + groupSize - 1) / groupSize
}
