// link-item runs connection discovery for a single item: pools candidates
// from the other item types, scores them, auto-links strong matches and
// records suggestions for weaker ones.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/polymath-app/polymath/internal/config"
	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/linking"
	"github.com/polymath-app/polymath/internal/store"
)

func main() {
	configPath := flag.String("config", "polymath.yaml", "Path to config file")
	itemType := flag.String("type", "", "Item type (thought, project, article)")
	itemID := flag.String("id", "", "Item id")
	against := flag.String("against", "", "Comma-separated item types to match against (default: all except own)")
	bridges := flag.Bool("bridges", false, "Also run the three bridge strategies (thoughts only)")
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

	embedder := embedding.NewClient(cfg.Ollama.URL, cfg.Ollama.EmbedModel)
	engine := linking.NewEngine(db, embedder, cfg.Linking)

	req := linking.Request{
		Type: store.ItemType(*itemType),
		ID:   *itemID,
	}
	for _, t := range strings.Split(*against, ",") {
		if t = strings.TrimSpace(t); t != "" {
			req.AgainstTypes = append(req.AgainstTypes, store.ItemType(t))
		}
	}

	result, err := engine.LinkItem(req)
	if err != nil {
		log.Fatalf("Linking failed: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if *bridges {
		source, err := db.GetItem(store.ItemRef{Type: req.Type, ID: req.ID})
		if err != nil || source == nil {
			log.Fatalf("Failed to reload item for bridges: %v", err)
		}
		found, err := engine.DiscoverBridges(source)
		if err != nil {
			log.Fatalf("Bridge discovery failed: %v", err)
		}
		out, _ := json.MarshalIndent(found, "", "  ")
		fmt.Println(string(out))
	}
}
