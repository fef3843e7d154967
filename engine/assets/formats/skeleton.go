package formats

import "github.com/go-gl/mathgl/mgl32"

type Joint struct {
	Name     *string  `json:"name"`
	Children []uint32 `json:"children"`
	// Row-major local transform.
	Trs [4][4]float32 `json:"trs"`
	// Row-major.
	InverseBindMatrix [4][4]float32 `json:"inverse_bind_matrix"`
}

func (j *Joint) Local() mgl32.Mat4 {
	return RowMajor(j.Trs)
}

func (j *Joint) InverseBind() mgl32.Mat4 {
	return RowMajor(j.InverseBindMatrix)
}

type Skeleton struct {
	Joints []Joint `json:"joints"`
}
