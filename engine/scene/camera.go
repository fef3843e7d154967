package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/math"
)

/**
 * @brief A perspective camera. Position and rotation go through the setters
 * so the view matrix is rebuilt only when needed.
 */
type Camera struct {
	/** @brief The position of this camera. */
	Position mgl32.Vec3
	/** @brief The rotation of this camera using Euler angles (pitch, yaw, roll), in radians. */
	EulerRotation mgl32.Vec3
	/** @brief Vertical field of view in radians. */
	Fovy   float32
	Aspect float32
	ZNear  float32
	ZFar   float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty    bool
	ViewMatrix mgl32.Mat4
}

const (
	DEFAULT_FOVY_DEGREES float32 = 45
	DEFAULT_ZNEAR        float32 = 0.1
	DEFAULT_ZFAR         float32 = 100
)

func NewCamera(aspect float32) *Camera {
	c := &Camera{Aspect: aspect}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.Position = mgl32.Vec3{}
	c.EulerRotation = mgl32.Vec3{}
	c.Fovy = mgl32.DegToRad(DEFAULT_FOVY_DEGREES)
	c.ZNear = DEFAULT_ZNEAR
	c.ZFar = DEFAULT_ZFAR
	c.IsDirty = false
	c.ViewMatrix = mgl32.Ident4()
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.IsDirty = true
}

// Rotation is the orientation of the camera as a quaternion.
func (c *Camera) Rotation() mgl32.Quat {
	return mgl32.AnglesToQuat(c.EulerRotation[0], c.EulerRotation[1], c.EulerRotation[2], mgl32.XYZ)
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.IsDirty {
		world := mgl32.Translate3D(c.Position[0], c.Position[1], c.Position[2]).Mul4(c.Rotation().Mat4())
		c.ViewMatrix = world.Inv()
		c.IsDirty = false
	}
	return c.ViewMatrix
}

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(c.Fovy, c.Aspect, c.ZNear, c.ZFar)
}

func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.GetView())
}

// Frustum returns the world-space clip planes of the camera.
func (c *Camera) Frustum() math.Frustum {
	return math.FrustumFromMatrix(c.ViewProjection())
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.Rotation().Rotate(mgl32.Vec3{0, 0, -1})
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.Rotation().Rotate(mgl32.Vec3{1, 0, 0})
}

func (c *Camera) MoveForward(amount float32) {
	c.SetPosition(c.Position.Add(c.Forward().Mul(amount)))
}

func (c *Camera) MoveBackward(amount float32) {
	c.MoveForward(-amount)
}

func (c *Camera) MoveRight(amount float32) {
	c.SetPosition(c.Position.Add(c.Right().Mul(amount)))
}

func (c *Camera) MoveLeft(amount float32) {
	c.MoveRight(-amount)
}

func (c *Camera) MoveUp(amount float32) {
	c.SetPosition(c.Position.Add(mgl32.Vec3{0, amount, 0}))
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] += amount

	// Clamp to avoid Gimbal lock.
	limit := mgl32.DegToRad(89)
	c.EulerRotation[0] = math.Clamp(c.EulerRotation[0], -limit, limit)

	c.IsDirty = true
}
