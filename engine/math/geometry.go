package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (a Aabb) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a Aabb) Extents() mgl32.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Transform returns the axis-aligned box enclosing a transformed by m.
func (a Aabb) Transform(m mgl32.Mat4) Aabb {
	center := m.Mul4x1(a.Center().Vec4(1)).Vec3()
	e := a.Extents()

	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		row := m.Row(i)
		out[i] = absf(row[0])*e[0] + absf(row[1])*e[1] + absf(row[2])*e[2]
	}
	return Aabb{Min: center.Sub(out), Max: center.Add(out)}
}

// Plane is n·p + d = 0 with n pointing into the frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

func (p Plane) normalize() Plane {
	l := p.Normal.Len()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Mul(1 / l), D: p.D / l}
}

func (p Plane) Distance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the six clip planes of a view-projection matrix
// (Gribb/Hartmann), for the -1..1 depth range mgl32.Perspective produces.
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)
	mk := func(v mgl32.Vec4) Plane {
		return Plane{Normal: v.Vec3(), D: v.W()}.normalize()
	}
	return Frustum{Planes: [6]Plane{
		mk(r3.Add(r0)), // left
		mk(r3.Sub(r0)), // right
		mk(r3.Add(r1)), // bottom
		mk(r3.Sub(r1)), // top
		mk(r3.Add(r2)), // near
		mk(r3.Sub(r2)), // far
	}}
}

// IntersectsAabb is conservative: boxes straddling a plane count as visible.
func (f Frustum) IntersectsAabb(box Aabb) bool {
	c, e := box.Center(), box.Extents()
	for _, p := range f.Planes {
		r := e[0]*absf(p.Normal[0]) + e[1]*absf(p.Normal[1]) + e[2]*absf(p.Normal[2])
		if p.Distance(c) < -r {
			return false
		}
	}
	return true
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
