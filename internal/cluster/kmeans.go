// Package cluster groups embedded items into semantic clusters with a
// cosine-similarity k-means: assignment maximizes similarity to the centroid
// rather than minimizing Euclidean distance.
package cluster

import (
	"math"
	"math/rand"

	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/store"
)

const (
	maxIterations   = 10
	convergenceEps  = 0.001
	minClusterCount = 3
	maxClusterCount = 20
)

// Cluster is one transient k-means group: the centroid vector and the member
// items assigned to it. Consumed immediately by the layout stage; never
// persisted on its own.
type Cluster struct {
	Centroid []float64
	Members  []*store.Item
}

// Count returns the target cluster count for n items:
// clamp(3, 20, floor(sqrt(n)*2)), further reduced to n when n is smaller.
func Count(n int) int {
	if n == 0 {
		return 0
	}
	k := int(math.Floor(math.Sqrt(float64(n)) * 2))
	if k < minClusterCount {
		k = minClusterCount
	}
	if k > maxClusterCount {
		k = maxClusterCount
	}
	if k > n {
		k = n
	}
	return k
}

// KMeans partitions items into k clusters. Centroids are initialized by
// sampling k distinct item vectors uniformly at random from rng (inject a
// seeded source for reproducible assignments; production passes a
// time-seeded one, so runs are nondeterministic by design). Runs at most 10
// iterations, stopping early once every centroid moves less than 0.001.
//
// Every input item lands in exactly one cluster; clusters may come back
// empty (their centroid goes stale) and are filtered by the caller.
func KMeans(items []*store.Item, k int, rng *rand.Rand) []Cluster {
	if len(items) == 0 || k <= 0 {
		return nil
	}
	if k > len(items) {
		k = len(items)
	}

	// Init: k distinct items chosen uniformly
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(items))[:k] {
		centroids[i] = append([]float64(nil), items[idx].Embedding...)
	}

	assignments := make([]int, len(items))
	for iter := 0; iter < maxIterations; iter++ {
		// Assign each item to the most similar centroid
		for i, it := range items {
			best, bestSim := 0, math.Inf(-1)
			for c, centroid := range centroids {
				if sim := embedding.CosineSimilarity(it.Embedding, centroid); sim > bestSim {
					best, bestSim = c, sim
				}
			}
			assignments[i] = best
		}

		// Recompute centroids as the mean of raw member vectors; empty
		// centroids keep their previous position
		moved := false
		for c := range centroids {
			var members [][]float64
			for i, it := range items {
				if assignments[i] == c {
					members = append(members, it.Embedding)
				}
			}
			if len(members) == 0 {
				continue
			}
			next := embedding.AverageEmbeddings(members)
			if delta(centroids[c], next) >= convergenceEps {
				moved = true
			}
			centroids[c] = next
		}
		if !moved {
			break
		}
	}

	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c].Centroid = centroids[c]
	}
	for i, it := range items {
		c := assignments[i]
		clusters[c].Members = append(clusters[c].Members, it)
	}
	return clusters
}

// delta is the Euclidean norm of the difference between two centroid positions
func delta(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
