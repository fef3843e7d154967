package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-assets/engine/containers"
	"github.com/spaghettifunk/anima-assets/engine/resources"
)

type NodeID struct{ containers.Index }

func (id NodeID) String() string {
	return "node#" + id.Index.String()
}

type Sun struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
}

func DefaultSun() Sun {
	return Sun{
		Direction: mgl32.Vec3{1, -1, 1}.Normalize(),
		Color:     mgl32.Vec3{10, 10, 10},
	}
}

type StaticModel struct {
	Handle           *resources.ModelHandle
	LastVisibleFrame uint32
}

type AnimatedModel struct {
	Model            *resources.ModelHandle
	Animator         Animator
	LastVisibleFrame uint32
}

/**
 * @brief A scene graph node. Transform is relative to the parent. At most
 * one of Static and Animated is set.
 */
type Node struct {
	Parent           *NodeID
	Children         []NodeID
	Transform        mgl32.Mat4
	TransformLastMut uint32
	Static           *StaticModel
	Animated         *AnimatedModel
}

// SetTransform replaces the local transform and records the frame it
// changed on.
func (n *Node) SetTransform(m mgl32.Mat4, frameIndex uint32) {
	n.Transform = m
	n.TransformLastMut = frameIndex
}

// Model returns the model drawn by the node, or nil.
func (n *Node) Model() *resources.ModelHandle {
	switch {
	case n.Static != nil:
		return n.Static.Handle
	case n.Animated != nil:
		return n.Animated.Model
	}
	return nil
}

// MarkVisible records that the node was inside the frustum on frameIndex.
func (n *Node) MarkVisible(frameIndex uint32) {
	switch {
	case n.Static != nil:
		n.Static.LastVisibleFrame = frameIndex
	case n.Animated != nil:
		n.Animated.LastVisibleFrame = frameIndex
	}
}

func (n *Node) LastVisibleFrame() uint32 {
	switch {
	case n.Static != nil:
		return n.Static.LastVisibleFrame
	case n.Animated != nil:
		return n.Animated.LastVisibleFrame
	}
	return 0
}

func (n *Node) release() {
	if h := n.Model(); h != nil {
		h.Release()
	}
	if n.Animated != nil && n.Animated.Animator.Clip != nil {
		n.Animated.Animator.Clip.Release()
	}
}

/** @brief Image-based lighting inputs and the directional sun. */
type Environment struct {
	Sun         Sun
	Prefiltered *resources.TextureHandle
	Irradiance  *resources.TextureHandle
	BrdfLut     *resources.TextureHandle
}

// EnvironmentPaths names the three textures of an environment. The cube maps
// are sampled as sRGB, the BRDF lookup table is linear.
type EnvironmentPaths struct {
	Prefiltered string
	Irradiance  string
	BrdfLut     string
}

func NewEnvironment(reg *resources.Registry, paths EnvironmentPaths) *Environment {
	return &Environment{
		Sun:         DefaultSun(),
		Prefiltered: reg.RequestTexture(paths.Prefiltered, true),
		Irradiance:  reg.RequestTexture(paths.Irradiance, true),
		BrdfLut:     reg.RequestTexture(paths.BrdfLut, false),
	}
}

func (e *Environment) release() {
	resources.ReleaseAll(e.Prefiltered, e.Irradiance, e.BrdfLut)
}

// UpdateFunc is called for every node, parents before children.
type UpdateFunc func(s *Scene, id NodeID, dt float32)

type Scene struct {
	Root          NodeID
	Nodes         *containers.Arena[Node]
	Camera        *Camera
	Environment   *Environment
	GlobalTimeSec float32
	// FrameIndex is the tick being simulated. Update callbacks pass it to
	// Node.SetTransform.
	FrameIndex uint32
}

// New creates a scene holding only an empty root node. env may be nil.
func New(camera *Camera, env *Environment) *Scene {
	nodes := containers.NewArena[Node](64)
	root := nodes.Insert(Node{Transform: mgl32.Ident4()})
	return &Scene{
		Root:        NodeID{root},
		Nodes:       nodes,
		Camera:      camera,
		Environment: env,
	}
}

// Node returns the node behind id.
func (s *Scene) Node(id NodeID) (*Node, bool) {
	return s.Nodes.Get(id.Index)
}

/**
 * @brief Inserts node as the last child of parent.
 * @return The id of the new node.
 */
func (s *Scene) AddNode(parent NodeID, node Node) (NodeID, error) {
	if !s.Nodes.Contains(parent.Index) {
		return NodeID{}, fmt.Errorf("parent %s does not exist", parent)
	}
	if node.Static != nil && node.Animated != nil {
		return NodeID{}, fmt.Errorf("node cannot be both static and animated")
	}
	node.Parent = &parent
	node.Children = nil
	id := NodeID{s.Nodes.Insert(node)}
	// Insert may move the slots; look the parent up again
	p, _ := s.Nodes.Get(parent.Index)
	p.Children = append(p.Children, id)
	return id, nil
}

// Update advances global time and every animator, then calls fn on each
// node depth-first.
func (s *Scene) Update(dt float32, fn UpdateFunc) {
	s.GlobalTimeSec += dt
	s.visit(s.Root, dt, fn)
}

func (s *Scene) visit(id NodeID, dt float32, fn UpdateFunc) {
	n, ok := s.Nodes.Get(id.Index)
	if !ok {
		return
	}
	if n.Animated != nil {
		n.Animated.Animator.Advance(dt)
	}
	if fn != nil {
		fn(s, id, dt)
	}
	// fn may add children; re-read the node
	n, ok = s.Nodes.Get(id.Index)
	if !ok {
		return
	}
	children := append([]NodeID(nil), n.Children...)
	for _, c := range children {
		s.visit(c, dt, fn)
	}
}

// Walk calls fn on every node depth-first with its world transform.
// Returning false from fn skips the node's children.
func (s *Scene) Walk(fn func(id NodeID, n *Node, world mgl32.Mat4) bool) {
	s.walk(s.Root, mgl32.Ident4(), fn)
}

func (s *Scene) walk(id NodeID, parent mgl32.Mat4, fn func(NodeID, *Node, mgl32.Mat4) bool) {
	n, ok := s.Nodes.Get(id.Index)
	if !ok {
		return
	}
	world := parent.Mul4(n.Transform)
	if !fn(id, n, world) {
		return
	}
	for _, c := range n.Children {
		s.walk(c, world, fn)
	}
}

// Release drops every resource handle held by the scene.
func (s *Scene) Release() {
	s.Nodes.Each(func(_ containers.Index, n *Node) { n.release() })
	if s.Environment != nil {
		s.Environment.release()
	}
}
