package worldmap

import (
	"math"
	"math/rand"
)

// Canvas and simulation constants. The simulation always runs the fixed step
// count; there is no energy-based early exit. Repulsion is O(n²) per step,
// fine for tens of cities.
const (
	CanvasWidth  = 4000.0
	CanvasHeight = 3000.0
	Padding      = 200.0

	layoutSteps   = 50
	jitter        = 100.0 // ±px around the anchor at init
	damping       = 0.8
	repulsion     = 60000.0 // inverse-square push between every node pair
	attraction    = 0.0015  // per unit of edge strength times displacement
	cohesion      = 1.5     // constant pull toward the cluster anchor
	distanceEps   = 0.01    // avoids division by zero at distance 0
)

// layoutNode is the mutable simulation state for one city
type layoutNode struct {
	x, y             float64
	vx, vy           float64
	anchorX, anchorY float64
}

// layoutEdge connects two nodes by index with an integer strength
type layoutEdge struct {
	a, b     int
	strength int
}

// runLayout positions n nodes on the canvas. Each cluster gets a fixed anchor
// evenly spaced around a circle inscribed in the canvas; actual positions
// start jittered around the anchor and settle over the simulation.
func runLayout(n int, edges []layoutEdge, rng *rand.Rand) []layoutNode {
	if n == 0 {
		return nil
	}

	cx, cy := CanvasWidth/2, CanvasHeight/2
	radius := math.Min(CanvasWidth, CanvasHeight)/2 - Padding

	nodes := make([]layoutNode, n)
	for i := range nodes {
		angle := 2 * math.Pi * float64(i) / float64(n)
		ax := cx + radius*math.Cos(angle)
		ay := cy + radius*math.Sin(angle)
		nodes[i] = layoutNode{
			anchorX: ax,
			anchorY: ay,
			x:       ax + (rng.Float64()*2-1)*jitter,
			y:       ay + (rng.Float64()*2-1)*jitter,
		}
	}

	for step := 0; step < layoutSteps; step++ {
		fx := make([]float64, n)
		fy := make([]float64, n)

		// Repulsion between every pair, inverse square of distance
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := nodes[i].x - nodes[j].x
				dy := nodes[i].y - nodes[j].y
				d2 := dx*dx + dy*dy + distanceEps
				d := math.Sqrt(d2)
				f := repulsion / d2
				ux, uy := dx/d, dy/d
				fx[i] += ux * f
				fy[i] += uy * f
				fx[j] -= ux * f
				fy[j] -= uy * f
			}
		}

		// Edge attraction proportional to strength and displacement
		for _, e := range edges {
			dx := nodes[e.b].x - nodes[e.a].x
			dy := nodes[e.b].y - nodes[e.a].y
			f := attraction * float64(e.strength)
			fx[e.a] += dx * f
			fy[e.a] += dy * f
			fx[e.b] -= dx * f
			fy[e.b] -= dy * f
		}

		// Constant-strength pull toward the anchor keeps clusters coherent
		for i := range nodes {
			dx := nodes[i].anchorX - nodes[i].x
			dy := nodes[i].anchorY - nodes[i].y
			d := math.Sqrt(dx*dx+dy*dy) + distanceEps
			fx[i] += dx / d * cohesion
			fy[i] += dy / d * cohesion
		}

		// Explicit Euler with multiplicative damping, then clamp to canvas
		for i := range nodes {
			nodes[i].vx = (nodes[i].vx + fx[i]) * damping
			nodes[i].vy = (nodes[i].vy + fy[i]) * damping
			nodes[i].x = clamp(nodes[i].x+nodes[i].vx, Padding, CanvasWidth-Padding)
			nodes[i].y = clamp(nodes[i].y+nodes[i].vy, Padding, CanvasHeight-Padding)
		}
	}

	return nodes
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
