// rebuild-map discards the previous map and rebuilds it from scratch: fetch
// every embedded item, cluster, lay out, persist the versioned result.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"

	"github.com/polymath-app/polymath/internal/config"
	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/store"
	"github.com/polymath-app/polymath/internal/worldmap"
)

func main() {
	configPath := flag.String("config", "polymath.yaml", "Path to config file")
	seed := flag.Int64("seed", 0, "RNG seed for reproducible layouts (0 = time-seeded)")
	print := flag.Bool("print", false, "Print the full map JSON instead of a summary")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	items, err := db.AllEmbedded()
	if err != nil {
		log.Fatalf("Failed to fetch embedded items: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	version, _, err := db.LatestMap()
	if err != nil {
		log.Fatalf("Failed to read latest map version: %v", err)
	}

	m := worldmap.Build(items, rng, version+1)

	// Generated labels are opt-in via the config's generation model; the
	// frequency-based labels stand on their own without one
	if cfg.Ollama.GenerationModel != "" {
		gen := embedding.NewClient(cfg.Ollama.URL, cfg.Ollama.EmbedModel)
		gen.SetGenerationModel(cfg.Ollama.GenerationModel)
		titles := make(map[string]string, len(items))
		for _, it := range items {
			titles[it.Ref().Key()] = it.Title
		}
		worldmap.RefineLabels(m, titles, gen)
	}

	payload, err := json.Marshal(m)
	if err != nil {
		log.Fatalf("Failed to marshal map: %v", err)
	}
	saved, err := db.SaveMap(payload)
	if err != nil {
		log.Fatalf("Failed to save map: %v", err)
	}
	m.Version = saved

	if *print {
		out, _ := json.MarshalIndent(m, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Map v%d: %d cities, %d roads, %d regions (%d items)\n",
		m.Version, len(m.Cities), len(m.Roads), len(m.Regions), len(items))
	for _, c := range m.Cities {
		fmt.Printf("  %-20s %-10s pop=%-4d at (%.0f, %.0f)\n",
			c.Label, c.Size, c.Population, c.X, c.Y)
	}
}
