package worldmap

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/polymath-app/polymath/internal/cluster"
	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/logging"
	"github.com/polymath-app/polymath/internal/store"
)

// roadThreshold is the centroid similarity above which two cities get a road
const roadThreshold = 0.6

// regionColors is cycled per cluster index
var regionColors = []string{
	"#4c6ef5", "#12b886", "#fa5252", "#fab005", "#7950f2",
	"#15aabf", "#e64980", "#82c91e", "#fd7e14", "#228be6",
}

// Build rebuilds the whole map from the given embedded-item snapshot. This is
// a from-scratch rebuild every time, never incremental: clustering, roads and
// positions are all recomputed. Zero items produce an empty map, not an error.
func Build(items []*store.Item, rng *rand.Rand, version int64) *Map {
	m := &Map{
		Cities:  []City{},
		Roads:   []Road{},
		Regions: []Region{},
		Viewport: Viewport{
			Width:   CanvasWidth,
			Height:  CanvasHeight,
			Padding: Padding,
		},
		Version: version,
	}
	if len(items) == 0 {
		return m
	}

	k := cluster.Count(len(items))
	clusters := cluster.KMeans(items, k, rng)

	// Empty clusters produce no city; keep the original index for labeling
	type populated struct {
		index int
		c     cluster.Cluster
	}
	var kept []populated
	for i, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		kept = append(kept, populated{index: i, c: c})
	}

	// Roads from pairwise centroid similarity
	var edges []layoutEdge
	now := time.Now()
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			sim := embedding.CosineSimilarity(kept[i].c.Centroid, kept[j].c.Centroid)
			if sim <= roadThreshold {
				continue
			}
			edges = append(edges, layoutEdge{
				a:        i,
				b:        j,
				strength: int(math.Round(sim * 15)),
			})
		}
	}

	nodes := runLayout(len(kept), edges, rng)

	for i, p := range kept {
		founded, lastActive := memberTimespan(p.c.Members)
		members := make([]store.ItemRef, len(p.c.Members))
		for mi, it := range p.c.Members {
			members[mi] = it.Ref()
		}

		city := City{
			ID:           fmt.Sprintf("city-%d", p.index),
			Label:        labelFor(p.c.Members, p.index),
			X:            nodes[i].x,
			Y:            nodes[i].y,
			Population:   len(p.c.Members),
			Size:         SizeForPopulation(len(p.c.Members)),
			Members:      members,
			Founded:      founded,
			LastActive:   lastActive,
			ClusterIndex: p.index,
		}
		m.Cities = append(m.Cities, city)

		m.Regions = append(m.Regions, Region{
			ID:      fmt.Sprintf("region-%d", p.index),
			CityID:  city.ID,
			CenterX: city.X,
			CenterY: city.Y,
			Radius:  regionRadius(city.Population),
			Color:   regionColors[p.index%len(regionColors)],
		})
	}

	for _, e := range edges {
		m.Roads = append(m.Roads, Road{
			From:     m.Cities[e.a].ID,
			To:       m.Cities[e.b].ID,
			Strength: e.strength,
			Tier:     RoadForStrength(e.strength),
			BuiltAt:  now,
		})
	}

	logging.Info("worldmap", "rebuilt map v%d: %d cities, %d roads from %d items",
		version, len(m.Cities), len(m.Roads), len(items))
	return m
}

// memberTimespan finds the earliest and latest member timestamps
func memberTimespan(members []*store.Item) (founded, lastActive time.Time) {
	for _, it := range members {
		if founded.IsZero() || it.CreatedAt.Before(founded) {
			founded = it.CreatedAt
		}
		if it.CreatedAt.After(lastActive) {
			lastActive = it.CreatedAt
		}
	}
	return founded, lastActive
}

// regionRadius grows with the square root of population so large cities don't
// swallow the canvas
func regionRadius(population int) float64 {
	return 80 + 14*math.Sqrt(float64(population))
}
