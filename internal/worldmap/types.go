// Package worldmap turns the full embedded-item set into a spatial map:
// k-means clusters become cities, centroid similarity becomes roads, and a
// force-directed simulation lays the whole thing out on a fixed canvas.
package worldmap

import (
	"time"

	"github.com/polymath-app/polymath/internal/store"
)

// SizeTier quantizes city population
type SizeTier string

const (
	TierMetropolis SizeTier = "metropolis" // >= 50 members
	TierCity       SizeTier = "city"       // >= 20
	TierTown       SizeTier = "town"       // >= 10
	TierVillage    SizeTier = "village"    // >= 3
	TierHomestead  SizeTier = "homestead"  // < 3
)

// RoadTier quantizes edge strength
type RoadTier string

const (
	RoadHighway RoadTier = "highway" // strength >= 11
	RoadMain    RoadTier = "main"    // >= 6
	RoadCountry RoadTier = "country" // >= 3
	RoadTrail   RoadTier = "trail"   // < 3
)

// City is the map node for one non-empty cluster
type City struct {
	ID           string          `json:"id"`
	Label        string          `json:"label"`
	X            float64         `json:"x"`
	Y            float64         `json:"y"`
	Population   int             `json:"population"`
	Size         SizeTier        `json:"size"`
	Members      []store.ItemRef `json:"members"`
	Founded      time.Time       `json:"founded"`     // earliest member timestamp
	LastActive   time.Time       `json:"last_active"` // latest member timestamp
	ClusterIndex int             `json:"cluster_index"`
}

// Road is an inter-city edge derived from cluster-centroid similarity, not
// from individual item connections
type Road struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Strength int       `json:"strength"` // round(similarity * 15), in [0,15]
	Tier     RoadTier  `json:"tier"`
	BuiltAt  time.Time `json:"built_at"`
}

// Region is the presentation wrapper around one city
type Region struct {
	ID      string  `json:"id"`
	CityID  string  `json:"city_id"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`
	Color   string  `json:"color"`
}

// Viewport is the canvas the map was laid out on
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding float64 `json:"padding"`
}

// Map is one full rebuild result. All slices are non-nil so an empty map
// serializes as empty arrays, not null.
type Map struct {
	Cities   []City   `json:"cities"`
	Roads    []Road   `json:"roads"`
	Regions  []Region `json:"regions"`
	Viewport Viewport `json:"viewport"`
	Version  int64    `json:"version"`
}
