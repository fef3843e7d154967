package formats

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Submesh is one draw range inside a model's shared buffer.
type Submesh struct {
	// Row-major 4x4 instance transforms.
	Instances        [][4][4]float32 `json:"instances"`
	IndexByteOffset  uint32          `json:"index_byte_offset"`
	IndexByteLength  uint32          `json:"index_byte_length"`
	VertexByteOffset uint32          `json:"vertex_byte_offset"`
	VertexByteLength uint32          `json:"vertex_byte_length"`
	BaseVertex       uint32          `json:"base_vertex"`
	// Index into Model.MaterialPaths. Nil uses the placeholder material.
	Material *uint32 `json:"material"`
}

// InstanceMatrices converts the row-major instance arrays into mgl32's
// column-major matrices.
func (s *Submesh) InstanceMatrices() []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(s.Instances))
	for i, rows := range s.Instances {
		out[i] = RowMajor(rows)
	}
	return out
}

// IndexRange is the [first, end) index range, assuming 32-bit indices.
func (s *Submesh) IndexRange() (uint32, uint32) {
	first := s.IndexByteOffset / 4
	return first, first + s.IndexByteLength/4
}

type Aabb struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

// Deformation is either rigid (Skinned == nil) or skinned.
type Deformation struct {
	Skinned *Skinned
}

type Skinned struct {
	Skeleton   string   `json:"skeleton"`
	Animations []string `json:"animations"`
}

// UnmarshalJSON accepts the baker's externally tagged encoding:
// "None" or {"Skinned": {...}}.
func (d *Deformation) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		if unit != "None" {
			return fmt.Errorf("unknown deformation %q", unit)
		}
		d.Skinned = nil
		return nil
	}

	var tagged struct {
		Skinned *Skinned `json:"Skinned"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if tagged.Skinned == nil {
		return fmt.Errorf("unknown deformation %s", string(data))
	}
	d.Skinned = tagged.Skinned
	return nil
}

func (d Deformation) MarshalJSON() ([]byte, error) {
	if d.Skinned == nil {
		return json.Marshal("None")
	}
	return json.Marshal(map[string]*Skinned{"Skinned": d.Skinned})
}

type Model struct {
	Submeshes               []Submesh   `json:"submeshes"`
	MaterialPaths           []string    `json:"material_paths"`
	Buffer                  string      `json:"buffer"`
	Deformation             Deformation `json:"deformation"`
	VertexBufferStartOffset uint32      `json:"vertex_buffer_start_offset"`
	Aabb                    Aabb        `json:"aabb"`
}

// RowMajor builds a matrix from row-major rows.
func RowMajor(rows [4][4]float32) mgl32.Mat4 {
	var m mgl32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[c*4+r] = rows[r][c]
		}
	}
	return m
}
