package scene

import (
	"fmt"
	"iter"

	"github.com/go-gl/mathgl/mgl32"
)

// Handle refers to a node inside one Graph
type Handle int

// NoHandle never refers to a node
const NoHandle Handle = -1

// Graph owns nodes and their hierarchy. Handle 0 is the root pivot.
type Graph struct {
	nodes []Node
	free  []Handle
	root  Handle
}

// NewGraph creates a graph holding only the root
func NewGraph() *Graph {
	g := &Graph{}
	g.root = g.insert(NewPivot("__ROOT__"))
	return g
}

func (g *Graph) insert(n Node) Handle {
	if len(g.free) > 0 {
		h := g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		g.nodes[h] = n
		return h
	}
	g.nodes = append(g.nodes, n)
	return Handle(len(g.nodes) - 1)
}

// Root returns the handle of the root pivot
func (g *Graph) Root() Handle {
	return g.root
}

// Add inserts n as a child of the root
func (g *Graph) Add(n Node) Handle {
	h := g.insert(n)
	g.attach(h, g.root)
	return h
}

// Link re-parents child under parent
func (g *Graph) Link(child, parent Handle) error {
	if !g.IsValid(child) || !g.IsValid(parent) {
		return fmt.Errorf("link %d -> %d: invalid handle", child, parent)
	}
	if child == g.root {
		return fmt.Errorf("cannot re-parent the root")
	}
	for p := parent; p != NoHandle; p = g.nodes[p].Base().parent {
		if p == child {
			return fmt.Errorf("link %d -> %d would create a cycle", child, parent)
		}
	}
	g.detach(child)
	g.attach(child, parent)
	return nil
}

func (g *Graph) attach(child, parent Handle) {
	g.nodes[child].Base().parent = parent
	pb := g.nodes[parent].Base()
	pb.children = append(pb.children, child)
}

func (g *Graph) detach(child Handle) {
	b := g.nodes[child].Base()
	if b.parent == NoHandle {
		return
	}
	pb := g.nodes[b.parent].Base()
	for i, c := range pb.children {
		if c == child {
			pb.children = append(pb.children[:i], pb.children[i+1:]...)
			break
		}
	}
	b.parent = NoHandle
}

// Remove deletes the node and its whole subtree
func (g *Graph) Remove(h Handle) {
	if !g.IsValid(h) || h == g.root {
		return
	}
	g.detach(h)
	g.removeSubtree(h)
}

func (g *Graph) removeSubtree(h Handle) {
	for _, c := range g.nodes[h].Base().children {
		g.removeSubtree(c)
	}
	g.nodes[h] = nil
	g.free = append(g.free, h)
}

// IsValid reports whether h refers to a live node
func (g *Graph) IsValid(h Handle) bool {
	return h >= 0 && int(h) < len(g.nodes) && g.nodes[h] != nil
}

// Node returns the node behind h, or nil
func (g *Graph) Node(h Handle) Node {
	if !g.IsValid(h) {
		return nil
	}
	return g.nodes[h]
}

// Lookup returns the node behind h if it has type T
func Lookup[T Node](g *Graph, h Handle) (T, bool) {
	n, ok := g.Node(h).(T)
	return n, ok
}

// LinearIter yields every live node in storage order, root included
func (g *Graph) LinearIter() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range g.nodes {
			if n == nil {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// Len returns the number of live nodes including the root
func (g *Graph) Len() int {
	return len(g.nodes) - len(g.free)
}

// FirstCamera returns the first enabled camera in storage order
func (g *Graph) FirstCamera() (*Camera, bool) {
	for n := range g.LinearIter() {
		if c, ok := n.(*Camera); ok && c.Enabled() {
			return c, true
		}
	}
	return nil, false
}

// Update refreshes global transforms and visibility top-down, recalculates camera
// matrices for frameSize and advances particle systems by dt seconds.
func (g *Graph) Update(frameSize mgl32.Vec2, dt float32) {
	g.updateGlobal(g.root, mgl32.Ident4(), true)

	for n := range g.LinearIter() {
		switch node := n.(type) {
		case *Camera:
			node.Calculate(frameSize)
		case *ParticleSystem:
			node.Update(dt)
		}
	}
}

func (g *Graph) updateGlobal(h Handle, parent mgl32.Mat4, parentShown bool) {
	b := g.nodes[h].Base()
	b.global = parent.Mul4(b.local.Matrix())
	b.shown = parentShown && b.visible
	for _, c := range b.children {
		g.updateGlobal(c, b.global, b.shown)
	}
}
