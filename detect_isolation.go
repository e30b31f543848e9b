package kpisight

import (
	"math"
	"math/rand"
	"sort"
)

const (
	// isolationMinLength is the shortest series the isolation forest accepts.
	isolationMinLength = 10
	// isolationTrees is the number of isolation trees per forest.
	isolationTrees = 100
	// isolationSampleSize is the per-tree subsample cap.
	isolationSampleSize = 256
	// isolationSeed fixes the forest RNG so runs are reproducible.
	isolationSeed = 42
)

// isoNode is a node in an isolation tree. Leaves carry the sample count that
// reached them; internal nodes carry the split.
type isoNode struct {
	splitValue float64
	left       *isoNode
	right      *isoNode
	size       int
}

// isolationForest holds the fitted trees for a single series.
type isolationForest struct {
	trees         []*isoNode
	maxDepth      int
	avgPathLength float64
	rng           *rand.Rand
}

// newIsolationForest fits a forest over the values with a fixed seed.
func newIsolationForest(values []float64) *isolationForest {
	sampleSize := isolationSampleSize
	if sampleSize > len(values) {
		sampleSize = len(values)
	}

	f := &isolationForest{
		trees:         make([]*isoNode, isolationTrees),
		maxDepth:      int(math.Ceil(math.Log2(float64(sampleSize)))),
		avgPathLength: isoAveragePathLength(float64(sampleSize)),
		rng:           rand.New(rand.NewSource(isolationSeed)),
	}

	for i := range f.trees {
		indices := f.rng.Perm(len(values))[:sampleSize]
		sample := make([]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = values[idx]
		}
		f.trees[i] = f.buildNode(sample, 0)
	}
	return f
}

func (f *isolationForest) buildNode(sample []float64, depth int) *isoNode {
	n := len(sample)
	if depth >= f.maxDepth || n <= 1 {
		return &isoNode{size: n}
	}

	lo, hi := minMax(sample)
	if lo == hi {
		return &isoNode{size: n}
	}

	split := lo + f.rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range sample {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}

	return &isoNode{
		splitValue: split,
		left:       f.buildNode(left, depth+1),
		right:      f.buildNode(right, depth+1),
	}
}

// score returns the anomaly score 2^(-E[h(x)]/c(n)); higher is more anomalous.
func (f *isolationForest) score(v float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += isoPathLength(v, tree, 0)
	}
	avgPath := total / float64(len(f.trees))
	return math.Pow(2, -avgPath/f.avgPathLength)
}

func isoPathLength(v float64, n *isoNode, depth int) float64 {
	if n.left == nil && n.right == nil {
		return float64(depth) + isoAveragePathLength(float64(n.size))
	}
	if v < n.splitValue {
		return isoPathLength(v, n.left, depth+1)
	}
	return isoPathLength(v, n.right, depth+1)
}

// isoAveragePathLength is the expected path length of an unsuccessful BST
// search: c(n) = 2*H(n-1) - 2*(n-1)/n.
func isoAveragePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	const eulerMascheroni = 0.5772156649
	return 2*(math.Log(n-1)+eulerMascheroni) - 2*(n-1)/n
}

// DetectIsolationForest scores every point with an isolation forest and
// selects the top contamination*n scored points (rounding down) as
// anomalies. Ties at the cutoff break by lowest position. Series shorter
// than ten points yield no anomalies. The forest uses a fixed seed, so
// identical inputs produce identical results.
func DetectIsolationForest(s Series, contamination float64) []AnomalyPoint {
	values := s.Values
	if len(values) < isolationMinLength || contamination <= 0 {
		return nil
	}

	limit := int(contamination * float64(len(values)))
	if limit <= 0 {
		return nil
	}
	if limit > len(values) {
		limit = len(values)
	}

	forest := newIsolationForest(values)
	scores := make([]float64, len(values))
	for i, v := range values {
		scores[i] = forest.score(v)
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})

	m := mean(values)
	results := make([]AnomalyPoint, 0, limit)
	for _, idx := range order[:limit] {
		deviation := 0.0
		if m != 0 {
			deviation = (values[idx] - m) / m * 100
		}
		results = append(results, AnomalyPoint{
			Position:     idx,
			Value:        values[idx],
			Score:        scores[idx],
			Method:       MethodIsolationForest,
			Severity:     ClassifySeverity(scores[idx], 0.5),
			DeviationPct: deviation,
			Context:      map[string]float64{"isolation_score": scores[idx]},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Position < results[j].Position
	})
	return results
}
