// Package bintree implements the adaptive weighted k-d partitioning tree:
// a binary tree of axis-aligned boxes whose terminal nodes (leaves) are
// split recursively along the axis with the steepest density gradient,
// subject to a minimum effective sample size, an anti-elongation rule, and
// an optional external grid constraint.
package bintree

import (
	"fmt"
	"log"

	"github.com/voxelpart/bintree/binleaf"
	"github.com/voxelpart/bintree/entrylist"
	"github.com/voxelpart/bintree/grid"
)

// Node is a tagged variant: either a terminal node wrapping a *binleaf.Leaf
// (leaf != nil, left/right == nil), or an internal node with exactly two
// children split at (cutAxis, cut) (leaf == nil, left/right != nil). Never
// both, never neither.
type Node struct {
	ndim int

	leaf        *binleaf.Leaf
	left, right *Node
	cutAxis     int
	cut         float64

	// Configuration. SplitLeaf copies minLeafEntries, maxAxisAsymmetry and
	// gridConstraint onto each new child; vetoSplit is per-node and starts
	// false on every new node.
	minLeafEntries   int
	maxAxisAsymmetry float64
	gridConstraint   grid.Grid
	vetoSplit        []bool
}

// Config carries the one-shot construction data for a new root node.
type Config struct {
	Bounds           []binleaf.Bounds
	Entries          [][]float64
	Weights          []float64
	MinLeafEntries   int     // default 200 if zero
	MaxAxisAsymmetry float64 // default 2.0 if zero
	GridConstraint   grid.Grid
}

// New builds a single-leaf root node over cfg.Bounds, populated with
// cfg.Entries/cfg.Weights. Call Build to grow it into a full tree.
func New(cfg Config) *Node {
	minLeafEntries := cfg.MinLeafEntries
	if minLeafEntries == 0 {
		minLeafEntries = 200
	}
	maxAxisAsymmetry := cfg.MaxAxisAsymmetry
	if maxAxisAsymmetry == 0 {
		maxAxisAsymmetry = 2.
	}

	n := &Node{
		ndim:             len(cfg.Bounds),
		leaf:             binleaf.New(cfg.Bounds, cfg.Entries, cfg.Weights),
		minLeafEntries:   minLeafEntries,
		maxAxisAsymmetry: maxAxisAsymmetry,
		gridConstraint:   cfg.GridConstraint,
		vetoSplit:        make([]bool, len(cfg.Bounds)),
	}
	return n
}

// Dim returns the tree's dimensionality.
func (n *Node) Dim() int { return n.ndim }

// IsLeaf reports whether n is a terminal node.
func (n *Node) IsLeaf() bool { return n.leaf != nil }

// Leaf returns the node's leaf, or nil if n is internal.
func (n *Node) Leaf() *binleaf.Leaf { return n.leaf }

// Children returns n's (left, right) children, or (nil, nil) if n is a
// leaf.
func (n *Node) Children() (*Node, *Node) { return n.left, n.right }

// CutAxis and CutValue return the split that produced n's children. Only
// meaningful when !n.IsLeaf().
func (n *Node) CutAxis() int      { return n.cutAxis }
func (n *Node) CutValue() float64 { return n.cut }

// SetGridConstraint installs a grid collaborator on n (but not on any
// existing descendants — set it before Build, or on freshly split
// children, to match the original's per-node assignment).
func (n *Node) SetGridConstraint(g grid.Grid) { n.gridConstraint = g }

// VetoSplit reports whether axis is vetoed on this specific node. Veto
// flags are per-node and are never inherited by children.
func (n *Node) VetoSplit(axis int) bool { return n.vetoSplit[axis] }

// SetVetoSplit sets the per-node veto flag for axis.
func (n *Node) SetVetoSplit(axis int, veto bool) { n.vetoSplit[axis] = veto }

// GetMin returns the minimum bound on axis across the whole subtree rooted
// at n.
func (n *Node) GetMin(axis int) float64 {
	if n.leaf != nil {
		return n.leaf.Min(axis)
	}
	return minFloat(n.left.GetMin(axis), n.right.GetMin(axis))
}

// GetMax returns the maximum bound on axis across the whole subtree rooted
// at n.
func (n *Node) GetMax(axis int) float64 {
	if n.leaf != nil {
		return n.leaf.Max(axis)
	}
	return maxFloat(n.left.GetMax(axis), n.right.GetMax(axis))
}

// GetBinBoundaries returns the bounding box of the subtree rooted at n, one
// (min, max) pair per axis.
func (n *Node) GetBinBoundaries() []binleaf.Bounds {
	if n.leaf != nil {
		return n.leaf.Bounds()
	}
	b := make([]binleaf.Bounds, n.ndim)
	for axis := 0; axis < n.ndim; axis++ {
		b[axis] = binleaf.Bounds{Min: n.GetMin(axis), Max: n.GetMax(axis)}
	}
	return b
}

// GetMinBinWidth returns the narrowest leaf width on axis anywhere in the
// subtree rooted at n.
func (n *Node) GetMinBinWidth(axis int) float64 {
	if n.leaf != nil {
		return n.leaf.Width(axis)
	}
	return minFloat(n.left.GetMinBinWidth(axis), n.right.GetMinBinWidth(axis))
}

// NEntries returns the total raw entry count in the subtree rooted at n.
func (n *Node) NEntries() int {
	if n.leaf != nil {
		return n.leaf.NEntries()
	}
	return n.left.NEntries() + n.right.NEntries()
}

// SumOfWeights returns the total entry weight in the subtree rooted at n.
func (n *Node) SumOfWeights() float64 {
	if n.leaf != nil {
		return n.leaf.SumOfWeights()
	}
	return n.left.SumOfWeights() + n.right.SumOfWeights()
}

// GetMinEntries returns the smallest per-leaf entry count in the subtree.
func (n *Node) GetMinEntries() int {
	if n.leaf != nil {
		return n.leaf.NEntries()
	}
	return minInt(n.left.GetMinEntries(), n.right.GetMinEntries())
}

// GetMaxEntries returns the largest per-leaf entry count in the subtree.
func (n *Node) GetMaxEntries() int {
	if n.leaf != nil {
		return n.leaf.NEntries()
	}
	return maxInt(n.left.GetMaxEntries(), n.right.GetMaxEntries())
}

// MaxLeafIndex returns the largest leaf index assigned anywhere in the
// subtree rooted at n.
func (n *Node) MaxLeafIndex() int {
	if n.leaf != nil {
		return n.leaf.Index()
	}
	return maxInt(n.left.MaxLeafIndex(), n.right.MaxLeafIndex())
}

// GetLeaf returns the leaf containing x, or nil if x falls outside n's
// box.
func (n *Node) GetLeaf(x []float64) *binleaf.Leaf {
	if n.leaf != nil {
		if n.leaf.InBin(x) {
			return n.leaf
		}
		return nil
	}
	if x[n.cutAxis] < n.cut {
		return n.left.GetLeaf(x)
	}
	return n.right.GetLeaf(x)
}

// GetLeaves returns every leaf in the subtree rooted at n, in tree order.
func (n *Node) GetLeaves() []*binleaf.Leaf {
	if n.leaf != nil {
		return []*binleaf.Leaf{n.leaf}
	}
	leaves := n.left.GetLeaves()
	leaves = append(leaves, n.right.GetLeaves()...)
	return leaves
}

// GetTerminalNodes returns every terminal *Node in the subtree rooted at
// n, in tree order.
func (n *Node) GetTerminalNodes() []*Node {
	if n.leaf != nil {
		return []*Node{n}
	}
	nodes := n.left.GetTerminalNodes()
	nodes = append(nodes, n.right.GetTerminalNodes()...)
	return nodes
}

// NLeaves returns the number of leaves in the subtree rooted at n.
func (n *Node) NLeaves() int { return len(n.GetLeaves()) }

// FindNeighborLeaves scans every leaf in the tree rooted at n and returns
// those that touch leaf's box on some face, leaf itself excluded. This is
// a linear O(L) scan over all leaves, appropriate at the leaf counts this
// tree targets (hundreds to low thousands).
func (n *Node) FindNeighborLeaves(leaf *binleaf.Leaf) []*binleaf.Leaf {
	var neighbors []*binleaf.Leaf
	for _, candidate := range n.GetLeaves() {
		if candidate == leaf {
			continue
		}
		if candidate.IsNeighbor(leaf) {
			neighbors = append(neighbors, candidate)
		}
	}
	return neighbors
}

// EntriesIfSplit reports the (left, right) entry counts that splitting n's
// leaf at (axis, cut) would produce, without mutating anything. Panics if
// n is not a leaf or cut falls outside n's box on axis.
func (n *Node) EntriesIfSplit(axis int, cut float64) (left, right int) {
	if n.leaf == nil {
		panic("bintree.EntriesIfSplit: not a terminal node")
	}
	b := n.leaf.Bounds()[axis]
	if cut <= b.Min || cut >= b.Max {
		panic(fmt.Sprintf("bintree.EntriesIfSplit: cut %g outside bin boundaries (%g, %g)", cut, b.Min, b.Max))
	}
	return n.leaf.Entries().EntriesIfSplit(axis, cut)
}

// SplitLeaf splits n's leaf at (axis, cut) into two fresh children,
// assigning them indices maxLeafIndex+1 and maxLeafIndex+2 and inheriting
// n's minLeafEntries/maxAxisAsymmetry/gridConstraint (never its veto
// flags, which start fresh on every new node). Panics if n is not a leaf
// or cut falls outside its box on axis.
func (n *Node) SplitLeaf(cut float64, maxLeafIndex int, axis int) {
	if n.leaf == nil {
		panic("bintree.SplitLeaf: can only split a terminal node")
	}
	bounds := n.leaf.Bounds()
	b := bounds[axis]
	if cut <= b.Min || cut >= b.Max {
		panic(fmt.Sprintf("bintree.SplitLeaf: cut %g outside bin boundaries (%g, %g)", cut, b.Min, b.Max))
	}

	boundsLeft := append([]binleaf.Bounds(nil), bounds...)
	boundsRight := append([]binleaf.Bounds(nil), bounds...)
	boundsLeft[axis] = binleaf.Bounds{Min: b.Min, Max: cut}
	boundsRight[axis] = binleaf.Bounds{Min: cut, Max: b.Max}

	n.cutAxis = axis
	n.cut = cut

	left := newChild(n, boundsLeft)
	right := newChild(n, boundsRight)

	leftEntries, rightEntries := n.leaf.Entries().Split(axis, cut)
	left.leaf.SetEntries(leftEntries)
	right.leaf.SetEntries(rightEntries)
	left.leaf.SetIndex(maxLeafIndex + 1)
	right.leaf.SetIndex(maxLeafIndex + 2)

	n.left = left
	n.right = right
	n.leaf = nil
}

func newChild(parent *Node, bounds []binleaf.Bounds) *Node {
	return &Node{
		ndim:             parent.ndim,
		leaf:             binleaf.New(bounds, nil, nil),
		minLeafEntries:   parent.minLeafEntries,
		maxAxisAsymmetry: parent.maxAxisAsymmetry,
		gridConstraint:   parent.gridConstraint,
		vetoSplit:        make([]bool, parent.ndim),
	}
}

// FindBestSplit recurses to the terminal node whose best candidate axis
// has the single steepest density gradient anywhere in the subtree rooted
// at n, honoring per-node veto flags. Returns (nil, 0, 0) if no node
// qualifies (every leaf is below 2*minLeafEntries effective entries, or
// every axis with nonzero gradient is vetoed or has all of the leaf's
// entries on a single value).
func (n *Node) FindBestSplit() (best *Node, axis int, gradient float64) {
	if n.leaf != nil {
		if n.leaf.EffectiveNEntries() < 2*n.minLeafEntries {
			return nil, 0, 0
		}
		maxGrad := 0.
		bestAxis := -1
		for ax := 0; ax < n.ndim; ax++ {
			// every entry shares one value on ax: no cut can separate them
			ends := n.leaf.Percentiles([]float64{0, 100}, ax)
			if ends[0] == ends[1] {
				continue
			}
			grad := n.leaf.DensityGradient(ax, entrylist.DefaultGradientStep)
			if grad > maxGrad && !n.vetoSplit[ax] {
				maxGrad = grad
				bestAxis = ax
			}
		}
		if bestAxis == -1 || maxGrad == 0 {
			return nil, 0, 0
		}
		return n, bestAxis, maxGrad
	}

	best1, axis1, grad1 := n.left.FindBestSplit()
	best2, axis2, grad2 := n.right.FindBestSplit()
	if grad1 >= grad2 {
		return best1, axis1, grad1
	}
	return best2, axis2, grad2
}

// ConstrainSplit snaps cut to the nearer edge of the grid constraint's bin
// on axis (ties go to the lower edge), vetoing the axis on n if no snapped
// cut remains strictly inside n's box. Does nothing if n has no grid
// constraint or axis is already vetoed on n. Reports the (possibly
// updated) veto state for axis on n.
func (n *Node) ConstrainSplit(axis int, cut float64) (newCut float64, veto bool) {
	if n.gridConstraint != nil && !n.vetoSplit[axis] {
		b := n.gridConstraint.FindBin(axis, cut)
		low := n.gridConstraint.BinLowEdge(axis, b)
		up := n.gridConstraint.BinUpEdge(axis, b)

		bounds := n.leaf.Bounds()[axis]
		if absFloat(up-cut) < absFloat(cut-low) {
			cut = up
			if cut >= bounds.Max {
				cut = low
			}
		} else {
			cut = low
			if cut <= bounds.Min {
				cut = up
			}
		}
		if cut <= bounds.Min || cut >= bounds.Max {
			n.vetoSplit[axis] = true
		}
	}
	return cut, n.vetoSplit[axis]
}

// MinimizeLongBins implements the anti-elongation rule: it nudges cut (and
// may veto axis on tree) so that neither resulting child becomes too thin
// on axis: measured relative to the root's full extent, each child's width
// on axis times maxAxisAsymmetry must be at least the longest other-axis
// relative length of tree's current box. root must
// be the tree's root node (its full bounding box is the reference frame).
func (root *Node) MinimizeLongBins(tree *Node, axis int, cut float64) (newCut float64, veto bool) {
	if tree.vetoSplit[axis] {
		return cut, true
	}

	binBoundaries := tree.GetBinBoundaries()
	fullBoundaries := root.GetBinBoundaries()

	fullLengths := make([]float64, root.ndim)
	binRelLengths := make([]float64, root.ndim)
	for ax := 0; ax < root.ndim; ax++ {
		fullLengths[ax] = fullBoundaries[ax].Max - fullBoundaries[ax].Min
		binRelLengths[ax] = (binBoundaries[ax].Max - binBoundaries[ax].Min) / fullLengths[ax]
	}

	cutRelDistance1 := (cut - binBoundaries[axis].Min) / fullLengths[axis]
	cutRelDistance2 := (binBoundaries[axis].Max - cut) / fullLengths[axis]

	maxRelLength := 0.
	for ax := 0; ax < root.ndim; ax++ {
		if ax != axis && binRelLengths[ax] > maxRelLength {
			maxRelLength = binRelLengths[ax]
		}
	}

	if cutRelDistance1 < cutRelDistance2 {
		if root.maxAxisAsymmetry*cutRelDistance1 < maxRelLength {
			cut = maxRelLength/root.maxAxisAsymmetry*fullLengths[axis] + binBoundaries[axis].Min
			cutRelDistance2 = (binBoundaries[axis].Max - cut) / fullLengths[axis]
			if cut >= binBoundaries[axis].Max || root.maxAxisAsymmetry*cutRelDistance2 < maxRelLength {
				tree.vetoSplit[axis] = true
			}
		}
	} else {
		if root.maxAxisAsymmetry*cutRelDistance2 < maxRelLength {
			cut = binBoundaries[axis].Max - maxRelLength/root.maxAxisAsymmetry*fullLengths[axis]
			cutRelDistance1 = (cut - binBoundaries[axis].Min) / fullLengths[axis]
			if cut <= binBoundaries[axis].Min || root.maxAxisAsymmetry*cutRelDistance1 < maxRelLength {
				tree.vetoSplit[axis] = true
			}
		}
	}

	return cut, tree.vetoSplit[axis]
}

// Build grows n (which must currently be a single leaf, as returned by
// New) into a full partition tree, following the split policy driven by
// FindBestSplit/MinimizeLongBins/ConstrainSplit, then runs a
// boundary-refinement pass that only ever subdivides further, never
// merges.
func (n *Node) Build() {
	n.leaf.SortEntries()
	if n.leaf.EffectiveNEntries() < 2*n.minLeafEntries {
		log.Printf("[WARN] effective number of entries = %d < 2 x %d; stopping with a single bin", n.leaf.EffectiveNEntries(), n.minLeafEntries)
		return
	}

	tree, axis, _ := n.FindBestSplit()
	cut := tree.leaf.Percentiles([]float64{50}, axis)[0]
	cut, veto := tree.ConstrainSplit(axis, cut)
	if !veto {
		tree.SplitLeaf(cut, n.MaxLeafIndex(), axis)
	}

	for tree != nil {
		tree, axis, _ = n.FindBestSplit()
		if tree == nil {
			break
		}
		cut = tree.leaf.Percentiles([]float64{50}, axis)[0]
		cut, veto = n.MinimizeLongBins(tree, axis, cut)
		if veto {
			continue
		}
		cut, veto = tree.ConstrainSplit(axis, cut)
		if veto {
			continue
		}
		tree.SplitLeaf(cut, n.MaxLeafIndex(), axis)
	}

	n.refineBoundaries()
}

// refineBoundaries implements the original's final pass: every terminal
// leaf that touches the root's outer box on some axis gets bisected along
// each such axis whenever the resulting left/right entry counts are
// sufficiently unbalanced (ratio < 0.7), and single-touching-axis results
// get up to two more such bisections at a tighter 0.5 ratio threshold.
// This pass only subdivides; it never merges or undoes a prior split.
func (n *Node) refineBoundaries() {
	boundaries := n.GetBinBoundaries()
	terminalNodes := n.GetTerminalNodes()

	for _, node := range terminalNodes {
		splitsOnAxis := make([]bool, n.ndim)
		nSplitAxis := 0
		for axis := 0; axis < n.ndim; axis++ {
			if node.leaf.Min(axis) == boundaries[axis].Min || node.leaf.Max(axis) == boundaries[axis].Max {
				splitsOnAxis[axis] = true
				nSplitAxis++
			}
		}

		type axisNode struct {
			node *Node
			axis int
		}
		nodes := []*Node{node}
		var toSplitFurther []axisNode

		for axis := 0; axis < n.ndim; axis++ {
			if !splitsOnAxis[axis] {
				continue
			}
			var newNodes []*Node
			for _, cur := range nodes {
				middle := (cur.GetMax(axis) + cur.GetMin(axis)) / 2.
				left, right := cur.EntriesIfSplit(axis, middle)
				if cur.NEntries() > 0 && ratio(left, right) < 0.7 {
					cur.SplitLeaf(middle, n.MaxLeafIndex(), axis)
					newNodes = append(newNodes, cur.left, cur.right)
					if nSplitAxis == 1 {
						toSplitFurther = append(toSplitFurther,
							axisNode{cur.left, axis}, axisNode{cur.right, axis})
					}
				} else {
					newNodes = append(newNodes, cur)
				}
			}
			nodes = newNodes
		}

		ns := 0
		for len(toSplitFurther) > 0 && ns < 2 {
			var next []axisNode
			for _, an := range toSplitFurther {
				node2, axis := an.node, an.axis
				if node2.leaf == nil {
					continue
				}
				if node2.leaf.Min(axis) != boundaries[axis].Min && node2.leaf.Max(axis) != boundaries[axis].Max {
					continue
				}
				middle := (node2.GetMax(axis) + node2.GetMin(axis)) / 2.
				left, right := node2.EntriesIfSplit(axis, middle)
				if node2.NEntries() > 0 && ratio(left, right) < 0.5 {
					node2.SplitLeaf(middle, n.MaxLeafIndex(), axis)
					next = append(next, axisNode{node2.left, axis}, axisNode{node2.right, axis})
				}
			}
			toSplitFurther = next
			ns++
		}
	}
}

func ratio(a, b int) float64 {
	lo, hi := float64(a), float64(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo / hi
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
