// Package scene holds the node graph the renderer reads each frame:
// cameras, lights, meshes, particle systems and sprites arranged in a
// transform hierarchy, grouped into independent scenes.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Kind classifies a node
type Kind int

const (
	KindPivot Kind = iota
	KindCamera
	KindLight
	KindMesh
	KindParticleSystem
	KindSprite
)

func (k Kind) String() string {
	switch k {
	case KindPivot:
		return "Pivot"
	case KindCamera:
		return "Camera"
	case KindLight:
		return "Light"
	case KindMesh:
		return "Mesh"
	case KindParticleSystem:
		return "ParticleSystem"
	case KindSprite:
		return "Sprite"
	default:
		return "Unknown"
	}
}

// Node is implemented by every node type. All of them embed NodeBase.
type Node interface {
	Base() *NodeBase
	Kind() Kind
}

// Transform is a local translation, rotation and scale
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform places a node at its parent's origin
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix returns T * R * S
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// NodeBase carries the state shared by all nodes
type NodeBase struct {
	name     string
	local    Transform
	global   mgl32.Mat4
	visible  bool
	shown    bool // visible and every ancestor visible
	parent   Handle
	children []Handle
}

func newBase(name string) NodeBase {
	return NodeBase{
		name:    name,
		local:   IdentityTransform(),
		global:  mgl32.Ident4(),
		visible: true,
		shown:   true,
		parent:  NoHandle,
	}
}

// Base returns the embedded base, satisfying Node for every node type
func (b *NodeBase) Base() *NodeBase {
	return b
}

func (b *NodeBase) Name() string {
	return b.name
}

func (b *NodeBase) SetName(name string) {
	b.name = name
}

// Local returns the local transform for modification. Global transforms
// are refreshed by Graph.Update.
func (b *NodeBase) Local() *Transform {
	return &b.local
}

// SetPosition is a shortcut for Local().Position
func (b *NodeBase) SetPosition(p mgl32.Vec3) {
	b.local.Position = p
}

// GlobalTransform returns the world matrix computed by the last update
func (b *NodeBase) GlobalTransform() mgl32.Mat4 {
	return b.global
}

// GlobalPosition returns the world-space origin of the node
func (b *NodeBase) GlobalPosition() mgl32.Vec3 {
	return b.global.Col(3).Vec3()
}

// LookVector is the world-space +Z axis of the node
func (b *NodeBase) LookVector() mgl32.Vec3 {
	return b.global.Col(2).Vec3()
}

// UpVector is the world-space +Y axis of the node
func (b *NodeBase) UpVector() mgl32.Vec3 {
	return b.global.Col(1).Vec3()
}

// SideVector is the world-space +X axis of the node
func (b *NodeBase) SideVector() mgl32.Vec3 {
	return b.global.Col(0).Vec3()
}

// Visible reports the node's own flag. Use GloballyVisible to include
// hidden ancestors.
func (b *NodeBase) Visible() bool {
	return b.visible
}

// GloballyVisible is false when the node or any ancestor was hidden at the
// last Graph.Update
func (b *NodeBase) GloballyVisible() bool {
	return b.shown
}

func (b *NodeBase) SetVisible(visible bool) {
	b.visible = visible
}

func (b *NodeBase) Parent() Handle {
	return b.parent
}

// Children returns a copy of the child handles
func (b *NodeBase) Children() []Handle {
	return append([]Handle(nil), b.children...)
}

// Pivot is an empty node used to group others
type Pivot struct {
	NodeBase
}

func NewPivot(name string) *Pivot {
	return &Pivot{NodeBase: newBase(name)}
}

func (*Pivot) Kind() Kind {
	return KindPivot
}
