package detector

import (
	"fmt"
	"math"
	"strings"

	"github.com/asim/quadtree"

	"github.com/MeKo-Tech/barscan/internal/utils"
)

// MergeStrategy selects how hulls within one contour group are clustered.
type MergeStrategy string

const (
	// MergeUnionFind unions every pair of hulls within the quiet distance and
	// hulls each class. The result does not depend on contour order.
	MergeUnionFind MergeStrategy = "unionfind"
	// MergeGreedy folds hulls into a running merged set in a single pass.
	// The result can depend on contour order.
	MergeGreedy MergeStrategy = "greedy"
)

// ParseMergeStrategy converts a config or flag value into a MergeStrategy.
// The empty string selects MergeUnionFind.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MergeUnionFind:
		return MergeUnionFind, nil
	case MergeGreedy:
		return MergeGreedy, nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q (want %q or %q)", s, MergeUnionFind, MergeGreedy)
	}
}

// mergeHulls clusters convex hulls lying within dist of each other and
// returns the convex hull of every cluster.
func mergeHulls(hulls [][]utils.Point, dist float64, strategy MergeStrategy) [][]utils.Point {
	if len(hulls) <= 1 {
		return hulls
	}
	if strategy == MergeGreedy {
		return mergeGreedy(hulls, dist)
	}
	return mergeUnionFind(hulls, dist)
}

func mergeGreedy(hulls [][]utils.Point, dist float64) [][]utils.Point {
	var merged [][]utils.Point
	for _, h := range hulls {
		next := make([][]utils.Point, 0, len(merged)+1)
		for _, m := range merged {
			if utils.ConvexPolygonsWithin(h, m, dist) {
				h = utils.ConvexHull(concatPoints(h, m))
			} else {
				next = append(next, m)
			}
		}
		merged = append(next, h)
	}
	return merged
}

func mergeUnionFind(hulls [][]utils.Point, dist float64) [][]utils.Point {
	idx := newHullIndex(hulls)
	ds := newDisjointSet(len(hulls))
	for i, h := range hulls {
		for _, j := range idx.near(i, dist) {
			if ds.find(i) == ds.find(j) {
				continue
			}
			if utils.ConvexPolygonsWithin(h, hulls[j], dist) {
				ds.union(i, j)
			}
		}
	}

	classes := make(map[int][]utils.Point)
	order := make([]int, 0, len(hulls))
	for i, h := range hulls {
		root := ds.find(i)
		if _, ok := classes[root]; !ok {
			order = append(order, root)
		}
		classes[root] = append(classes[root], h...)
	}
	out := make([][]utils.Point, 0, len(order))
	for _, root := range order {
		out = append(out, utils.ConvexHull(classes[root]))
	}
	return out
}

func concatPoints(a, b []utils.Point) []utils.Point {
	out := make([]utils.Point, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// maxIndexedHalf is the largest half width or height of a hull kept in the
// quadtree. Bigger hulls are few and are checked against every query.
const maxIndexedHalf = 32

// hullIndex is a quadtree holding the bounding box center of every small
// hull. Two hulls within dist of each other have bounding boxes at most
// dist apart, so a query box grown by dist plus the largest indexed half
// extent contains the center of every candidate.
type hullIndex struct {
	boxes  []utils.Box
	tree   *quadtree.QuadTree
	large  []int
	reachX float64
	reachY float64
	out    []int
}

func newHullIndex(hulls [][]utils.Point) *hullIndex {
	idx := &hullIndex{boxes: make([]utils.Box, len(hulls))}
	all := utils.Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for i, h := range hulls {
		bb := utils.BoundingBox(h)
		idx.boxes[i] = bb
		all = utils.Box{
			MinX: math.Min(all.MinX, bb.MinX),
			MinY: math.Min(all.MinY, bb.MinY),
			MaxX: math.Max(all.MaxX, bb.MaxX),
			MaxY: math.Max(all.MaxY, bb.MaxY),
		}
	}
	if len(hulls) == 0 {
		return idx
	}

	idx.tree = quadtree.New(quadtree.NewAABB(
		quadtree.NewPoint(all.MinX+all.Width()/2, all.MinY+all.Height()/2, nil),
		quadtree.NewPoint(all.Width()/2+1, all.Height()/2+1, nil),
	), 0, nil)
	for i, bb := range idx.boxes {
		halfW, halfH := bb.Width()/2, bb.Height()/2
		if halfW > maxIndexedHalf || halfH > maxIndexedHalf ||
			!idx.tree.Insert(quadtree.NewPoint(bb.MinX+halfW, bb.MinY+halfH, i)) {
			idx.large = append(idx.large, i)
			continue
		}
		idx.reachX = math.Max(idx.reachX, halfW)
		idx.reachY = math.Max(idx.reachY, halfH)
	}
	return idx
}

// near returns the indices j > i of hulls whose bounding box lies within
// dist of hull i's. Each index appears once. The returned slice is reused
// by the next call.
func (x *hullIndex) near(i int, dist float64) []int {
	x.out = x.out[:0]
	if x.tree == nil {
		return x.out
	}
	bb := x.boxes[i]
	// Half a pixel of slack keeps centers exactly on the edge inside.
	halfW := bb.Width()/2 + dist + x.reachX + 0.5
	halfH := bb.Height()/2 + dist + x.reachY + 0.5
	query := quadtree.NewAABB(
		quadtree.NewPoint(bb.MinX+bb.Width()/2, bb.MinY+bb.Height()/2, nil),
		quadtree.NewPoint(math.Max(halfW, 0), math.Max(halfH, 0), nil),
	)
	for _, p := range x.tree.Search(query) {
		if j, ok := p.Data().(int); ok && j > i && boxesWithin(bb, x.boxes[j], dist) {
			x.out = append(x.out, j)
		}
	}
	for _, j := range x.large {
		if j > i && boxesWithin(bb, x.boxes[j], dist) {
			x.out = append(x.out, j)
		}
	}
	return x.out
}

// boxesWithin reports whether the gap between a and b is at most dist on
// both axes.
func boxesWithin(a, b utils.Box, dist float64) bool {
	gapX := math.Max(a.MinX-b.MaxX, b.MinX-a.MaxX)
	gapY := math.Max(a.MinY-b.MaxY, b.MinY-a.MaxY)
	return gapX <= dist && gapY <= dist
}

// disjointSet is a union-find with path halving and union by rank.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (d *disjointSet) find(i int) int {
	for d.parent[i] != i {
		d.parent[i] = d.parent[d.parent[i]]
		i = d.parent[i]
	}
	return i
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
}
