package dedup

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Embedder maps texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// DefaultEps is the cosine-distance neighborhood radius below which two
// posts count as near-duplicates.
const DefaultEps = 0.25

// Representatives clusters texts by semantic similarity and returns the
// index of one representative per cluster. Every text is embedded, then
// density-clustered over cosine distance with minimum cluster size 1, so a
// cluster is a connected component of the eps-neighborhood graph and a
// point with no neighbors is its own cluster. The first member scanned in
// input order is the cluster representative; indices come back in the order
// clusters are first encountered.
//
// Pairwise distances make this O(n^2); callers cap n before invoking.
func Representatives(ctx context.Context, texts []string, eps float64, embedder Embedder) ([]int, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) == 1 {
		return []int{0}, nil
	}

	vecs, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	n := len(texts)
	visited := make([]bool, n)
	reps := make([]int, 0, n)

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		// i starts a fresh cluster; flood every point reachable through
		// chains of eps-neighbors so none of them is emitted again.
		reps = append(reps, i)
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			for q := 0; q < n; q++ {
				if !visited[q] && cosineDistance(vecs[p], vecs[q]) <= eps {
					visited[q] = true
					queue = append(queue, q)
				}
			}
		}
	}

	return reps, nil
}

// Deduplicate collapses near-duplicate texts, keeping one representative
// per similarity cluster.
func Deduplicate(ctx context.Context, texts []string, eps float64, embedder Embedder) ([]string, error) {
	reps, err := Representatives(ctx, texts, eps, embedder)
	if err != nil {
		return nil, err
	}
	unique := make([]string, 0, len(reps))
	for _, i := range reps {
		unique = append(unique, texts[i])
	}
	return unique, nil
}

func cosineDistance(a, b []float64) float64 {
	na := math.Sqrt(floats.Dot(a, a))
	nb := math.Sqrt(floats.Dot(b, b))
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - floats.Dot(a, b)/(na*nb)
}
