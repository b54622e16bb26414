package renderer

import (
	"lumen/pkg/gpu"
	"lumen/pkg/scene"
)

// surfaceLayout matches scene.Vertex: position, uv, normal, tangent
var surfaceLayout = gpu.VertexLayout{
	Stride: scene.VertexFloats,
	Attributes: []gpu.VertexAttribute{
		{Location: 0, Components: 3, Offset: 0},
		{Location: 1, Components: 2, Offset: 3},
		{Location: 2, Components: 3, Offset: 5},
		{Location: 3, Components: 4, Offset: 8},
	},
}

// geometryCacheTTL is how many frames an unused buffer survives
const geometryCacheTTL = 300

type cachedGeometry struct {
	buffer   *gpu.GeometryBuffer
	version  uint64
	lastUsed uint64
}

// GeometryCache keeps one GPU buffer per SurfaceData, re-uploading when the
// data's version changes and dropping buffers nobody drew for a while
type GeometryCache struct {
	entries map[uint64]*cachedGeometry
	frame   uint64
}

func NewGeometryCache() *GeometryCache {
	return &GeometryCache{entries: make(map[uint64]*cachedGeometry)}
}

// Get returns an up-to-date buffer for data, uploading it if needed
func (c *GeometryCache) Get(state *gpu.State, data *scene.SurfaceData) (*gpu.GeometryBuffer, error) {
	entry, ok := c.entries[data.ID()]
	if ok && entry.version == data.Version() {
		entry.lastUsed = c.frame
		return entry.buffer, nil
	}

	if !ok {
		buffer, err := gpu.NewGeometryBuffer(state, surfaceLayout, gpu.StaticDraw)
		if err != nil {
			return nil, err
		}
		entry = &cachedGeometry{buffer: buffer}
		c.entries[data.ID()] = entry
	}

	vertices, indices := data.Flatten()
	if err := entry.buffer.Set(vertices, indices); err != nil {
		entry.buffer.Release()
		delete(c.entries, data.ID())
		return nil, err
	}
	entry.version = data.Version()
	entry.lastUsed = c.frame
	return entry.buffer, nil
}

// Advance ends a frame and releases buffers unused for geometryCacheTTL
// frames
func (c *GeometryCache) Advance() {
	c.frame++
	for id, entry := range c.entries {
		if c.frame-entry.lastUsed > geometryCacheTTL {
			entry.buffer.Release()
			delete(c.entries, id)
		}
	}
}

// Len returns the number of cached buffers
func (c *GeometryCache) Len() int {
	return len(c.entries)
}

// Clear releases every buffer
func (c *GeometryCache) Clear() {
	for id, entry := range c.entries {
		entry.buffer.Release()
		delete(c.entries, id)
	}
}
