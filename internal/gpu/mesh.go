//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Vertex layout of the present mesh: position (vec2<f32>) then texture
// coordinate (vec2<f32>).
const (
	quadVertexStride = 16
	quadUVOffset     = 8
)

// QuadVertices covers clip space. Texture coordinate (0,0) sits at the
// bottom-left corner, so image row 0 is shown at the bottom of the window.
var QuadVertices = [4][4]float32{
	// x, y, u, v
	{-1, -1, 0, 0},
	{1, -1, 1, 0},
	{1, 1, 1, 1},
	{-1, 1, 0, 1},
}

// QuadIndices split the quad into two triangles sharing the 0-2 diagonal.
var QuadIndices = [6]uint16{0, 1, 2, 0, 2, 3}

func quadVertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: quadVertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: quadUVOffset, ShaderLocation: 1},
		},
	}
}

// Mesh holds the vertex and index buffers of the full-screen quad.
// It is uploaded once and never changes.
type Mesh struct {
	device  hal.Device
	vertBuf hal.Buffer
	idxBuf  hal.Buffer
}

// NewMesh uploads the quad.
func NewMesh(device hal.Device, queue hal.Queue) (*Mesh, error) {
	verts := quadVertexBytes()
	vertBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_vertices",
		Size:  uint64(len(verts)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}

	idx := quadIndexBytes()
	idxBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "quad_indices",
		Size:  uint64(len(idx)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyBuffer(vertBuf)
		return nil, fmt.Errorf("create index buffer: %w", err)
	}

	m := &Mesh{device: device, vertBuf: vertBuf, idxBuf: idxBuf}
	if err := queue.WriteBuffer(vertBuf, 0, verts); err != nil {
		m.Destroy()
		return nil, fmt.Errorf("upload vertices: %w", err)
	}
	if err := queue.WriteBuffer(idxBuf, 0, idx); err != nil {
		m.Destroy()
		return nil, fmt.Errorf("upload indices: %w", err)
	}
	return m, nil
}

// IndexCount returns the number of indices drawn per frame.
func (m *Mesh) IndexCount() uint32 { return uint32(len(QuadIndices)) }

func (m *Mesh) record(rp hal.RenderPassEncoder) {
	rp.SetVertexBuffer(0, m.vertBuf, 0)
	rp.SetIndexBuffer(m.idxBuf, gputypes.IndexFormatUint16, 0)
	rp.DrawIndexed(m.IndexCount(), 1, 0, 0, 0)
}

// Destroy releases both buffers.
func (m *Mesh) Destroy() {
	if m == nil || m.device == nil {
		return
	}
	m.device.DestroyBuffer(m.idxBuf)
	m.device.DestroyBuffer(m.vertBuf)
	m.device = nil
}

func quadVertexBytes() []byte {
	buf := make([]byte, 0, len(QuadVertices)*quadVertexStride)
	for _, v := range QuadVertices {
		for _, f := range v {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

func quadIndexBytes() []byte {
	buf := make([]byte, 0, len(QuadIndices)*2)
	for _, i := range QuadIndices {
		buf = binary.LittleEndian.AppendUint16(buf, i)
	}
	return buf
}
