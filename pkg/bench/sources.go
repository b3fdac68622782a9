package bench

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dcadenas/pagerank"
	"github.com/pjavanrood/csrbench/pkg/csr"
)

// PageRank parameters: standard damping factor and tolerance.
const (
	pageRankDamping   = 0.85
	pageRankTolerance = 0.0001
)

type vertexScore struct {
	vertex int
	score  float64
}

// TopSourcesByPageRank ranks the vertices of the transposed graph and
// returns the k highest, best first. Ranking the transpose favours vertices
// with many out-paths, which make long traversals. Ties go to the lower id.
func TopSourcesByPageRank(g *csr.Graph, k int) []int {
	if k <= 0 || g.NumEdges() == 0 {
		return nil
	}

	prGraph := pagerank.New()
	for src, dst := range g.Transpose().Edges() {
		prGraph.Link(int(src), int(dst))
	}

	scores := make([]vertexScore, 0, g.NumVertices())
	var scoresLock sync.Mutex
	prGraph.Rank(pageRankDamping, pageRankTolerance, func(identifier int, rank float64) {
		scoresLock.Lock()
		defer scoresLock.Unlock()
		scores = append(scores, vertexScore{vertex: identifier, score: rank})
	})

	slices.SortFunc(scores, func(a, b vertexScore) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.vertex, b.vertex)
	})

	k = min(k, len(scores))
	top := make([]int, k)
	for i := range k {
		top[i] = scores[i].vertex
		log.Debugf("Top vertex %d: %d (PageRank: %.6f)", i+1, scores[i].vertex, scores[i].score)
	}
	return top
}
