package sparkfield

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"time"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"

	"github.com/sparkfield/sparkfield/shaders"
)

const debugReadbackRecords = 10

// ParticleSystemModule owns the GPU-resident particle state and the
// compute/render pipelines that advance and draw it. Configuration is
// fixed at install time; the particle count never changes afterwards.
type ParticleSystemModule struct {
	Count         int
	Origin        mgl32.Vec2 // seed position in normalized device coordinates
	SpeedFactor   float32
	LifetimeRange [2]float32 // seconds (min,max)
	PointSize     float32    // screen-space pixels

	// Backdrop names the clear color (x/image colornames key).
	Backdrop string

	// Optional WGSL files; the embedded defaults are used when empty.
	UpdateShaderPath string
	DrawShaderPath   string

	// Seed for the initial distributions; 0 means time-based.
	Seed int64

	// Debug maps the head of the state buffer back to the CPU every frame
	// and logs it. This drains the GPU pipeline; never enable it outside
	// of diagnosis.
	Debug bool
}

func NewParticleSystem() *ParticleSystemModule {
	return &ParticleSystemModule{
		Count:         DefaultParticleCount,
		Origin:        mgl32.Vec2{0, 0},
		SpeedFactor:   0.205,
		LifetimeRange: [2]float32{1.5, 3.0},
		PointSize:     10.0,
		Backdrop:      "black",
	}
}

// particleRenderState is the single owner of the particle arena after
// seeding. stateBuffer is written by the compute stage only; renderBuffer
// is the hand-off copy the draw stage reads.
type particleRenderState struct {
	stateBuffer       *wgpu.Buffer
	renderBuffer      *wgpu.Buffer
	simParamsBuffer   *wgpu.Buffer
	frameParamsBuffer *wgpu.Buffer
	readbackBuffer    *wgpu.Buffer

	computePipeline *wgpu.ComputePipeline
	renderPipeline  *wgpu.RenderPipeline

	computeBindGroup *wgpu.BindGroup
	frameBindGroup   *wgpu.BindGroup

	count      int
	pointSize  float32
	clearColor wgpu.Color
}

func (mod ParticleSystemModule) Install(app *App, cmd *Commands) {
	gs := mustResource[GpuState](app)
	server := mustResource[AssetServer](app)

	updateShader, err := mod.resolveShader(server, mod.UpdateShaderPath, "particles_update.wgsl", shaders.ParticlesUpdateWGSL)
	if err != nil {
		cmd.Abort(err)
		return
	}
	drawShader, err := mod.resolveShader(server, mod.DrawShaderPath, "particles_draw.wgsl", shaders.ParticlesDrawWGSL)
	if err != nil {
		cmd.Abort(err)
		return
	}

	rs, err := createParticleRenderState(mod, updateShader, drawShader, server, gs)
	if err != nil {
		cmd.Abort(err)
		return
	}
	cmd.AddResources(rs)

	// Initializing transitions unconditionally to Running; a failed
	// install aborts before this system is ever registered, so an app
	// with a broken pipeline never enters Running.
	app.UseSystem(
		System(particleStartSystem).
			InStage(Update).
			InState(OnExecute(StateInitializing)),
	)
	app.UseSystem(
		System(particleUniformsSystem).
			InStage(Update).
			InState(OnExecute(StateRunning)),
	)
	app.UseSystem(
		System(particleFrameSystem).
			InStage(Render).
			InState(OnExecute(StateRunning)),
	)
	if mod.Debug {
		app.UseSystem(
			System(particleDebugReadbackSystem).
				InStage(PostRender).
				InState(OnExecute(StateRunning)),
		)
	}
	app.UseSystem(
		System(particleReleaseSystem).
			InStage(Prelude).
			InState(OnExit(StateShuttingDown)),
	)
}

func (mod ParticleSystemModule) resolveShader(server *AssetServer, path string, name string, embedded string) (Shader, error) {
	if path != "" {
		return server.LoadShader(path)
	}
	return server.AddShaderSource(name, embedded), nil
}

func createParticleRenderState(mod ParticleSystemModule, updateShader Shader, drawShader Shader, server *AssetServer, gs *GpuState) (*particleRenderState, error) {
	seed := mod.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	particles := seedParticles(SeedConfig{
		Count:       mod.Count,
		Origin:      mod.Origin,
		SpeedFactor: mod.SpeedFactor,
		LifeMin:     mod.LifetimeRange[0],
		LifeMax:     mod.LifetimeRange[1],
	}, rng)
	// After this upload the GPU buffer is the only live copy; the seeded
	// slice goes out of scope and must not be consulted again.
	bufferSize := uint64(mod.Count * ParticleStride)

	rs := &particleRenderState{
		count:      mod.Count,
		pointSize:  mod.PointSize,
		clearColor: backdropColor(mod.Backdrop),
	}
	fail := func(err error) (*particleRenderState, error) {
		rs.release()
		return nil, err
	}

	var err error
	rs.stateBuffer, err = createBufferInit("Particle State Buffer", wgpu.ToBytes(particles),
		wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst, gs)
	if err != nil {
		return fail(err)
	}
	rs.renderBuffer, err = createEmptyBuffer("Particle Render Buffer", bufferSize,
		wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst, gs)
	if err != nil {
		return fail(err)
	}
	rs.simParamsBuffer, err = createEmptyBuffer("Sim Params Buffer", 16,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, gs)
	if err != nil {
		return fail(err)
	}
	rs.frameParamsBuffer, err = createEmptyBuffer("Frame Params Buffer", 16,
		wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, gs)
	if err != nil {
		return fail(err)
	}

	if mod.Debug {
		rs.readbackBuffer, err = createEmptyBuffer("Particle Readback Buffer", uint64(debugReadbackRecords*ParticleStride),
			wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst, gs)
		if err != nil {
			return fail(err)
		}
	}

	updateAsset, ok := server.shaderListing(updateShader)
	if !ok {
		return fail(fmt.Errorf("update shader asset missing"))
	}
	drawAsset, ok := server.shaderListing(drawShader)
	if !ok {
		return fail(fmt.Errorf("draw shader asset missing"))
	}

	rs.computePipeline, err = createComputePipeline(updateAsset.shaderName, updateAsset.listing, "update_particles", gs)
	if err != nil {
		return fail(err)
	}
	rs.renderPipeline, err = createInstanceRenderPipeline(drawAsset.shaderName, drawAsset.listing, Particle{}, gs)
	if err != nil {
		return fail(err)
	}

	computeLayout := rs.computePipeline.GetBindGroupLayout(0)
	defer computeLayout.Release()
	rs.computeBindGroup, err = gs.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: computeLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rs.stateBuffer, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: rs.simParamsBuffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fail(fmt.Errorf("compute bind group: %w", err))
	}

	frameLayout := rs.renderPipeline.GetBindGroupLayout(0)
	defer frameLayout.Release()
	rs.frameBindGroup, err = gs.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: rs.frameParamsBuffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fail(fmt.Errorf("frame bind group: %w", err))
	}

	return rs, nil
}

func particleStartSystem(cmd *Commands) {
	cmd.ChangeState(StateRunning)
}

// packSimParams serializes the kernel uniform. Layout is written out
// explicitly to match the WGSL struct:
//
//	struct SimParams {
//	  delta_time: f32;     -- 0
//	  particle_count: u32; -- 4
//	  pointer: vec2<f32>;  -- 8
//	} -> 16 bytes
func packSimParams(dt float32, count uint32, pointer mgl32.Vec2) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(dt))
	binary.LittleEndian.PutUint32(buf[4:8], count)
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(pointer.X()))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(pointer.Y()))
	return buf
}

// packFrameParams serializes the draw uniform:
//
//	struct FrameParams {
//	  resolution: vec2<f32>; -- 0
//	  point_size: f32;       -- 8
//	} -> 16 bytes (padded)
func packFrameParams(width int, height int, pointSize float32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(width)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(height)))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(pointSize))
	return buf
}

// particleUniformsSystem pushes this frame's elapsed time and pointer
// position to the kernel, and the surface dimensions to the draw stage.
func particleUniformsSystem(t *Time, pointer *Pointer, rs *particleRenderState, gs *GpuState) {
	if err := gs.queue.WriteBuffer(rs.simParamsBuffer, 0, packSimParams(t.DtSeconds(), uint32(rs.count), pointer.NDC)); err != nil {
		panic(err)
	}
	if err := gs.queue.WriteBuffer(rs.frameParamsBuffer, 0, packFrameParams(pointer.Width, pointer.Height, rs.pointSize)); err != nil {
		panic(err)
	}
}

// particleFrameSystem records one frame: compute pass over all particles,
// the buffer hand-off copy, then the render pass. Everything goes into a
// single submission; pass and copy ordering within it is the barrier that
// makes the compute writes visible to the copy and the copy visible to the
// draw.
func particleFrameSystem(rs *particleRenderState, gs *GpuState, cmd *Commands) {
	nextTexture, err := gs.surface.GetCurrentTexture()
	if err != nil {
		cmd.Abort(fmt.Errorf("acquire surface texture: %w", err))
		return
	}
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	defer view.Release()
	encoder, err := gs.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}
	defer encoder.Release()

	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(rs.computePipeline)
	computePass.SetBindGroup(0, rs.computeBindGroup, nil)
	computePass.DispatchWorkgroups(uint32(workgroupCount(rs.count, ParticleWorkgroupSize)), 1, 1)
	if err := computePass.End(); err != nil {
		panic(err)
	}

	// Hand-off: compute-write target to render-read target.
	encoder.CopyBufferToBuffer(rs.stateBuffer, 0, rs.renderBuffer, 0, uint64(rs.count*ParticleStride))
	if rs.readbackBuffer != nil {
		encoder.CopyBufferToBuffer(rs.stateBuffer, 0, rs.readbackBuffer, 0, uint64(debugReadbackRecords*ParticleStride))
	}

	renderPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: rs.clearColor,
			},
		},
	})
	defer renderPass.Release()

	renderPass.SetPipeline(rs.renderPipeline)
	renderPass.SetVertexBuffer(0, rs.renderBuffer, 0, wgpu.WholeSize)
	renderPass.SetBindGroup(0, rs.frameBindGroup, nil)
	renderPass.Draw(6, uint32(rs.count), 0, 0)
	if err := renderPass.End(); err != nil {
		panic(err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	defer cmdBuffer.Release()

	gs.queue.Submit(cmdBuffer)
	gs.surface.Present()
}

// particleDebugReadbackSystem maps the head of the state buffer back to the
// CPU and logs it. Blocking on the map drains the whole GPU queue; this is
// diagnostic output, not a source of truth.
func particleDebugReadbackSystem(rs *particleRenderState, gs *GpuState, cmd *Commands) {
	logger := cmd.app.Logger()
	if !logger.DebugEnabled() {
		return
	}

	done := false
	err := rs.readbackBuffer.MapAsync(wgpu.MapModeRead, 0, rs.readbackBuffer.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		done = status == wgpu.BufferMapAsyncStatusSuccess
	})
	if err != nil {
		logger.Warnf("particle readback map failed: %v", err)
		return
	}
	gs.device.Poll(true, nil)
	if !done {
		logger.Warnf("particle readback map did not complete")
		return
	}

	data := rs.readbackBuffer.GetMappedRange(0, uint(rs.readbackBuffer.GetSize()))
	records := unsafe.Slice((*Particle)(unsafe.Pointer(&data[0])), debugReadbackRecords)
	for i, p := range records {
		logger.Debugf("particle %d: pos(%.4f, %.4f) vel(%.4f, %.4f) age %.3f lifetime %.3f",
			i, p.Pos.X(), p.Pos.Y(), p.Vel.X(), p.Vel.Y(), p.Age, p.Life)
	}
	rs.readbackBuffer.Unmap()
}

func particleReleaseSystem(rs *particleRenderState) {
	rs.release()
}

// release drops every GPU object in reverse creation order. Safe on a
// partially constructed state.
func (rs *particleRenderState) release() {
	for _, bg := range []*wgpu.BindGroup{rs.frameBindGroup, rs.computeBindGroup} {
		if bg != nil {
			bg.Release()
		}
	}
	if rs.renderPipeline != nil {
		rs.renderPipeline.Release()
	}
	if rs.computePipeline != nil {
		rs.computePipeline.Release()
	}
	for _, buf := range []*wgpu.Buffer{rs.readbackBuffer, rs.frameParamsBuffer, rs.simParamsBuffer, rs.renderBuffer, rs.stateBuffer} {
		if buf != nil {
			buf.Release()
		}
	}
	*rs = particleRenderState{count: rs.count}
}

func backdropColor(name string) wgpu.Color {
	c, ok := colornames.Map[name]
	if !ok {
		c = colornames.Black
	}
	return wgpu.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
		A: float64(c.A) / 255.0,
	}
}

// mustResource fetches an installed resource or panics; missing resources
// at install time are wiring bugs, not runtime failures.
func mustResource[T any](app *App) *T {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r, ok := app.resources[t]
	if !ok {
		panic(fmt.Sprintf("required resource %s is not installed", t))
	}
	return r.(*T)
}
