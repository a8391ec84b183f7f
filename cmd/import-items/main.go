// import-items bulk-loads thoughts, projects and articles from a JSON file,
// generates embeddings for anything missing one, and extracts entity sets for
// thoughts so the bridge signals have something to work with.
//
// Input format: a JSON array of {type, id?, title, content, created_at?}.
// Items without an id get a content-derived short id, so re-importing the
// same file is idempotent.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/zeebo/blake3"

	"github.com/polymath-app/polymath/internal/config"
	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/extract"
	"github.com/polymath-app/polymath/internal/store"
)

type importItem struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func main() {
	configPath := flag.String("config", "polymath.yaml", "Path to config file")
	inputPath := flag.String("input", "", "Path to JSON array of items")
	skipEmbed := flag.Bool("skip-embed", false, "Import without generating embeddings")
	flag.Parse()

	_ = godotenv.Load()

	if *inputPath == "" {
		log.Fatal("Usage: import-items -input items.json")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	var incoming []importItem
	if err := json.Unmarshal(data, &incoming); err != nil {
		log.Fatalf("Failed to parse input: %v", err)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	embedder := embedding.NewClient(cfg.Ollama.URL, cfg.Ollama.EmbedModel)
	extractor := extract.NewExtractor()

	var items []*store.Item
	var skipped int
	for _, in := range incoming {
		itemType := store.ItemType(in.Type)
		if !itemType.Valid() || in.Title == "" {
			log.Printf("Skipping item with missing type/title: %+v", in)
			skipped++
			continue
		}

		id := in.ID
		if id == "" {
			id = shortID(in.Title + "\n" + in.Content)
		}

		items = append(items, &store.Item{
			ID:        id,
			Type:      itemType,
			Title:     in.Title,
			Content:   in.Content,
			CreatedAt: in.CreatedAt,
		})
	}

	var embedded int
	if !*skipEmbed && len(items) > 0 {
		texts := make([]string, len(items))
		for i, it := range items {
			texts[i] = it.Title
			if it.Content != "" {
				texts[i] = it.Title + "\n\n" + it.Content
			}
		}
		// One batch over all items. A provider outage mid-batch keeps what
		// was embedded so far; the rest import unembedded and stay out of
		// linking and clustering until a later backfill.
		embs, err := embedder.BatchEmbed(texts)
		if err != nil {
			if errors.Is(err, embedding.ErrUnavailable) {
				log.Printf("Embedder unavailable after %d of %d embeddings, importing the rest without", len(embs), len(items))
			} else {
				log.Printf("Batch embed failed: %v", err)
			}
		}
		for i, emb := range embs {
			if len(emb) > 0 {
				items[i].Embedding = emb
				embedded++
			}
		}
	}

	var imported int
	for _, it := range items {
		if err := db.UpsertItem(it); err != nil {
			log.Printf("Failed to import %s: %v", it.ID, err)
			skipped++
			continue
		}
		imported++

		if it.Type == store.ItemThought {
			entities := extractor.Entities(it.Title + "\n" + it.Content)
			if len(entities) > 0 {
				if err := db.SetItemEntities(it.Ref(), entities); err != nil {
					log.Printf("Failed to store entities for %s: %v", it.ID, err)
				}
			}
		}
	}

	log.Printf("Imported %d items (%d embedded, %d skipped)", imported, embedded, skipped)
}

// shortID derives a stable 8-byte content hash id
func shortID(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
