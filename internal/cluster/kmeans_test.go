package cluster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/polymath-app/polymath/internal/store"
)

func TestCount(t *testing.T) {
	cases := []struct {
		n, want int
	}{
		{0, 0},
		{1, 1},   // clamped to 3, then reduced to n
		{2, 2},
		{3, 3},
		{4, 4},   // floor(sqrt(4)*2) = 4
		{12, 6},  // floor(sqrt(12)*2) = 6
		{100, 20},
		{200, 20}, // capped at 20
	}
	for _, tc := range cases {
		if got := Count(tc.n); got != tc.want {
			t.Errorf("Count(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

// unitVec returns a unit 2-vector at the given angle (radians)
func unitVec(angle float64) []float64 {
	return []float64{math.Cos(angle), math.Sin(angle)}
}

func testItems(vectors [][]float64) []*store.Item {
	items := make([]*store.Item, len(vectors))
	for i, v := range vectors {
		items[i] = &store.Item{
			ID:        "item-" + string(rune('a'+i)),
			Type:      store.ItemThought,
			Embedding: v,
		}
	}
	return items
}

func TestKMeansPartition(t *testing.T) {
	// Three tight angular groups, well separated on the unit circle
	var vectors [][]float64
	for _, center := range []float64{0, 2, 4} {
		for _, off := range []float64{-0.05, 0, 0.05} {
			vectors = append(vectors, unitVec(center+off))
		}
	}
	items := testItems(vectors)

	rng := rand.New(rand.NewSource(42))
	clusters := KMeans(items, 3, rng)

	if len(clusters) != 3 {
		t.Fatalf("clusters = %d, want 3", len(clusters))
	}

	// Every item lands in exactly one cluster
	seen := map[string]int{}
	total := 0
	for _, c := range clusters {
		total += len(c.Members)
		for _, m := range c.Members {
			seen[m.ID]++
		}
	}
	if total != len(items) {
		t.Errorf("member total = %d, want %d", total, len(items))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("item %s assigned %d times", id, n)
		}
	}

	// Each member is at least as similar to its own centroid as to any other
	for ci, c := range clusters {
		for _, m := range c.Members {
			own := cosine(m.Embedding, c.Centroid)
			for cj, other := range clusters {
				if cj == ci || len(other.Members) == 0 {
					continue
				}
				if cosine(m.Embedding, other.Centroid) > own+1e-9 {
					t.Errorf("item %s closer to cluster %d than its own %d", m.ID, cj, ci)
				}
			}
		}
	}
}

func TestKMeansDeterministicWithSeed(t *testing.T) {
	var vectors [][]float64
	for i := 0; i < 10; i++ {
		vectors = append(vectors, unitVec(float64(i)*0.6))
	}

	run := func() map[string]int {
		items := testItems(vectors)
		clusters := KMeans(items, 4, rand.New(rand.NewSource(7)))
		got := map[string]int{}
		for ci, c := range clusters {
			for _, m := range c.Members {
				got[m.ID] = ci
			}
		}
		return got
	}

	first, second := run(), run()
	for id, ci := range first {
		if second[id] != ci {
			t.Errorf("item %s moved between seeded runs: %d vs %d", id, ci, second[id])
		}
	}
}

func TestKMeansClampsKToItemCount(t *testing.T) {
	items := testItems([][]float64{unitVec(0), unitVec(1)})
	clusters := KMeans(items, 5, rand.New(rand.NewSource(1)))
	if len(clusters) != 2 {
		t.Errorf("clusters = %d, want 2", len(clusters))
	}
}

func TestKMeansEmptyInput(t *testing.T) {
	if got := KMeans(nil, 3, rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	items := testItems([][]float64{unitVec(0)})
	if got := KMeans(items, 0, rand.New(rand.NewSource(1))); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
