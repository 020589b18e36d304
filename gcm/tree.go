package gcm

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/Jon-Bright/hercules-gcm/sysreg"
)

const domainNodeBase = 0x100

// TreeNode is a clock source or domain in a Tree.
type TreeNode struct {
	IsDomain bool
	Source   Source
	Domain   Domain
}

func sourceNode(s Source) TreeNode { return TreeNode{Source: s} }
func domainNode(d Domain) TreeNode { return TreeNode{IsDomain: true, Domain: d} }

func (n TreeNode) ID() int64 {
	if n.IsDomain {
		return domainNodeBase + int64(n.Domain)
	}
	return int64(n.Source)
}

func (n TreeNode) String() string {
	if n.IsDomain {
		return n.Domain.String()
	}
	return n.Source.String()
}

// Tree is a snapshot of how domains are currently routed. Edges run from a
// clock to the clocks derived from it.
type Tree struct {
	g *simple.DirectedGraph
}

// Tree reads the mux registers and returns the current routing.
func (c *Controller) Tree() (*Tree, error) {
	t := &Tree{g: simple.NewDirectedGraph()}
	for _, s := range bootSources {
		t.add(sourceNode(s))
	}

	ghv := c.bus.Read32(sysreg.GHVSRC)
	if err := t.route(Source(ghv&sourceFieldMask), DomainGCLK1); err != nil {
		return nil, err
	}
	t.link(domainNode(DomainGCLK1), domainNode(DomainHCLK))
	t.link(domainNode(DomainHCLK), domainNode(DomainVCLK))
	t.link(domainNode(DomainHCLK), domainNode(DomainVCLK2))
	t.link(domainNode(DomainHCLK), domainNode(DomainVCLK3))

	vclka := c.bus.Read32(sysreg.VCLKASRC)
	acon := c.bus.Read32(sysreg.VCLKACON1)
	rclk := c.bus.Read32(sysreg.RCLKSRC)
	routes := []struct {
		v uint32
		d Domain
	}{
		{vclka >> domains[DomainVCLKA1].pos, DomainVCLKA1},
		{vclka >> domains[DomainVCLKA2].pos, DomainVCLKA2},
		{acon >> domains[DomainVCLKA4].pos, DomainVCLKA4},
		{rclk, DomainRTICLK1},
	}
	for _, r := range routes {
		if err := t.route(Source(r.v&sourceFieldMask), r.d); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) add(n TreeNode) {
	if t.g.Node(n.ID()) == nil {
		t.g.AddNode(n)
	}
}

func (t *Tree) link(from, to TreeNode) {
	t.add(from)
	t.add(to)
	t.g.SetEdge(t.g.NewEdge(t.g.Node(from.ID()), t.g.Node(to.ID())))
}

func (t *Tree) route(s Source, d Domain) error {
	switch {
	case s == SourceVCLK:
		if d == DomainGCLK1 {
			return fmt.Errorf("%w: %v routed from %v", ErrInvalidArgument, d, s)
		}
		t.link(domainNode(DomainVCLK), domainNode(d))
	case s.routable():
		t.link(sourceNode(s), domainNode(d))
	default:
		// Reserved source code: the domain has no usable input.
		t.add(domainNode(d))
	}
	return nil
}

func nodes(it graph.Nodes) []TreeNode {
	var ns []TreeNode
	for it.Next() {
		ns = append(ns, it.Node().(TreeNode))
	}
	return ns
}

// Order returns every clock with each one before the clocks derived from it.
func (t *Tree) Order() ([]TreeNode, error) {
	sorted, err := topo.Sort(t.g)
	if err != nil {
		return nil, fmt.Errorf("clock tree has a cycle: %v", err)
	}
	ns := make([]TreeNode, len(sorted))
	for i, n := range sorted {
		ns[i] = n.(TreeNode)
	}
	return ns, nil
}

// Parent returns the clock n is derived from, if any.
func (t *Tree) Parent(n TreeNode) (TreeNode, bool) {
	ps := nodes(t.g.To(n.ID()))
	if len(ps) == 0 {
		return TreeNode{}, false
	}
	return ps[0], true
}

// Children returns the clocks derived from n.
func (t *Tree) Children(n TreeNode) []TreeNode {
	return nodes(t.g.From(n.ID()))
}
