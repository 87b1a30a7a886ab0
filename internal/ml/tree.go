package ml

import (
	"math"
	"math/rand"
	"sort"
)

const minSplitGain = 1e-9

// treeNode is one node of a flattened regression tree. Leaves have Left == -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

func (t *regressionTree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if n.Feature < len(x) && x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows a CART tree over first and second order statistics.
// With g = y and h = 1 the leaves hold the mean label; with log-loss
// gradients they hold the Newton step.
type treeBuilder struct {
	X           [][]float64
	g, h        []float64
	maxDepth    int
	minLeaf     int
	maxFeatures int
	lambda      float64
	constraints []int
	rng         *rand.Rand

	gain  []float64
	nodes []treeNode
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      float64
	right     float64
}

func (b *treeBuilder) build(rows []int) *regressionTree {
	b.nodes = nil
	if b.gain == nil && len(b.X) > 0 {
		b.gain = make([]float64, len(b.X[0]))
	}
	b.grow(rows, 0, math.Inf(-1), math.Inf(1))
	return &regressionTree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(rows []int, depth int, lo, hi float64) int {
	var G, H float64
	for _, r := range rows {
		G += b.g[r]
		H += b.h[r]
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Left: -1, Right: -1, Value: b.leafValue(G, H, lo, hi)})
	if depth >= b.maxDepth || len(rows) < 2*b.minLeaf {
		return idx
	}

	s, ok := b.bestSplit(rows, G, H, lo, hi)
	if !ok {
		return idx
	}
	b.gain[s.feature] += s.gain

	var left, right []int
	for _, r := range rows {
		if b.X[r][s.feature] <= s.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	// Children of a constrained split get disjoint value ranges so every leaf
	// on the left stays below every leaf on the right (or above, for -1).
	lLo, lHi, rLo, rHi := lo, hi, lo, hi
	mid := (s.left + s.right) / 2
	switch constraintAt(b.constraints, s.feature) {
	case 1:
		lHi, rLo = mid, mid
	case -1:
		lLo, rHi = mid, mid
	}

	l := b.grow(left, depth+1, lLo, lHi)
	r := b.grow(right, depth+1, rLo, rHi)
	b.nodes[idx].Feature = s.feature
	b.nodes[idx].Threshold = s.threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

func (b *treeBuilder) score(G, H float64) float64 {
	d := H + b.lambda
	if d <= 0 {
		return 0
	}
	return G * G / d
}

func (b *treeBuilder) leafValue(G, H, lo, hi float64) float64 {
	d := H + b.lambda
	v := 0.0
	if d > 0 {
		v = G / d
	}
	return math.Min(hi, math.Max(lo, v))
}

func (b *treeBuilder) bestSplit(rows []int, G, H, lo, hi float64) (split, bool) {
	parent := b.score(G, H)
	best := split{gain: minSplitGain}
	found := false

	order := make([]int, len(rows))
	for _, f := range b.candidateFeatures() {
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool { return b.X[order[i]][f] < b.X[order[j]][f] })

		c := constraintAt(b.constraints, f)
		var gl, hl float64
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			gl += b.g[r]
			hl += b.h[r]

			nl := i + 1
			if nl < b.minLeaf {
				continue
			}
			if len(order)-nl < b.minLeaf {
				break
			}
			xv, xn := b.X[r][f], b.X[order[i+1]][f]
			if xv == xn {
				continue
			}

			gr, hr := G-gl, H-hl
			gain := b.score(gl, hl) + b.score(gr, hr) - parent
			if gain <= best.gain {
				continue
			}
			lv, rv := b.leafValue(gl, hl, lo, hi), b.leafValue(gr, hr, lo, hi)
			if (c > 0 && lv > rv) || (c < 0 && lv < rv) {
				continue
			}
			best = split{feature: f, threshold: (xv + xn) / 2, gain: gain, left: lv, right: rv}
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) candidateFeatures() []int {
	p := len(b.gain)
	if b.maxFeatures <= 0 || b.maxFeatures >= p || b.rng == nil {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := b.rng.Perm(p)[:b.maxFeatures]
	sort.Ints(picked)
	return picked
}
