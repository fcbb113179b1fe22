// Package shaders carries the embedded default WGSL sources. External
// shader files loaded through the AssetServer take precedence; these keep
// the module runnable without any assets on disk.
package shaders

import (
	_ "embed"
)

//go:embed particles_update.wgsl
var ParticlesUpdateWGSL string

//go:embed particles_draw.wgsl
var ParticlesDrawWGSL string
