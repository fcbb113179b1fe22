package sparkfield

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

type AssetId string

// Shader is a handle to a WGSL source held by the AssetServer.
type Shader struct {
	assetId AssetId
}

type ShaderAsset struct {
	version    uint
	shaderName string
	listing    string
}

type AssetServer struct {
	shaders map[AssetId]ShaderAsset
}

type AssetServerModule struct{}

// LoadShader reads a whole WGSL source file. No templating, no includes.
func (server AssetServer) LoadShader(filename string) (Shader, error) {
	shaderData, err := os.ReadFile(filename)
	if err != nil {
		return Shader{}, fmt.Errorf("load shader %s: %w", filename, err)
	}

	id := makeAssetId()

	server.shaders[id] = ShaderAsset{
		version:    0,
		shaderName: filename,
		listing:    string(shaderData),
	}

	return Shader{
		assetId: id,
	}, nil
}

// AddShaderSource registers an in-memory WGSL source, e.g. one of the
// embedded defaults from the shaders package.
func (server AssetServer) AddShaderSource(name string, listing string) Shader {
	id := makeAssetId()

	server.shaders[id] = ShaderAsset{
		version:    0,
		shaderName: name,
		listing:    listing,
	}

	return Shader{
		assetId: id,
	}
}

func (server AssetServer) shaderListing(shader Shader) (ShaderAsset, bool) {
	asset, ok := server.shaders[shader.assetId]
	return asset, ok
}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(&AssetServer{
		shaders: make(map[AssetId]ShaderAsset),
	})
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
