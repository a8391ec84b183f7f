// Package linking is the reactive connection-discovery pipeline: given one
// item, it pools candidates from the other item types, scores them, and turns
// the scores into connections (strong matches) or pending suggestions (weak
// matches) under a configurable threshold policy.
package linking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/logging"
	"github.com/polymath-app/polymath/internal/store"
)

// Repository is the storage surface the engine needs. *store.DB satisfies it;
// tests use it to drive the engine against a temp database.
type Repository interface {
	GetItem(ref store.ItemRef) (*store.Item, error)
	UpsertItem(it *store.Item) error
	Candidates(itemType store.ItemType, queryEmb []float64, exclude []store.ItemRef, limit int) ([]*store.Item, error)
	ConnectedRefs(ref store.ItemRef) ([]store.ItemRef, error)
	ConnectionExists(a, b store.ItemRef) (bool, error)
	InsertConnection(c *store.Connection) (bool, error)
	InsertSuggestions(suggestions []*store.Suggestion) (int, error)
	ItemEntities(ref store.ItemRef) (map[string]string, error)
}

// Embedder produces embeddings for item text
type Embedder interface {
	Embed(text string) ([]float64, error)
}

// ErrInvalidRequest marks linking requests missing required identifying fields
var ErrInvalidRequest = errors.New("invalid linking request")

// Engine runs connection discovery for single items
type Engine struct {
	repo     Repository
	embedder Embedder
	params   Params
}

// NewEngine creates a linking engine. embedder may be nil when callers
// guarantee items are already embedded.
func NewEngine(repo Repository, embedder Embedder, params Params) *Engine {
	return &Engine{repo: repo, embedder: embedder, params: params.sanitize()}
}

// Request identifies the item to link and optionally narrows the search
type Request struct {
	Type store.ItemType
	ID   string

	// AgainstTypes overrides the default search set (all types except the
	// source's own). Setting it to the source's own type gives the legacy
	// same-type matching mode.
	AgainstTypes []store.ItemType
}

// Candidate is one scored pairing, reported in the result preview
type Candidate struct {
	Type       store.ItemType `json:"type"`
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Similarity float64        `json:"similarity"`
}

// Result reports what a linking run did
type Result struct {
	AutoLinked  int         `json:"autoLinked"`
	Suggestions int         `json:"suggestions"`
	Candidates  []Candidate `json:"candidates"` // top 5 scored, acted on or not
}

// scored pairs a candidate item with its semantic similarity
type scored struct {
	item *store.Item
	sim  float64
}

// LinkItem runs the full discover-score-decide pipeline for one item.
// Embedding-provider outages degrade to an empty result; repository failures
// propagate.
func (e *Engine) LinkItem(req Request) (*Result, error) {
	if req.ID == "" || !req.Type.Valid() {
		return nil, fmt.Errorf("%w: type and id are required", ErrInvalidRequest)
	}

	source, err := e.repo.GetItem(store.ItemRef{Type: req.Type, ID: req.ID})
	if err != nil {
		return nil, fmt.Errorf("fetch source item: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: item %s:%s not found", ErrInvalidRequest, req.Type, req.ID)
	}

	if len(source.Embedding) == 0 {
		if err := e.embedSource(source); err != nil {
			if errors.Is(err, embedding.ErrUnavailable) {
				logging.Info("linking", "embedder unavailable for %s, skipping: %v", source.Ref().Key(), err)
				return &Result{Candidates: []Candidate{}}, nil
			}
			return nil, err
		}
	}
	if len(source.Embedding) == 0 {
		// Nothing to score against; not an error
		return &Result{Candidates: []Candidate{}}, nil
	}

	pool, err := e.discover(source, req.AgainstTypes)
	if err != nil {
		return nil, err
	}

	return e.decide(source, pool)
}

// embedSource embeds the source item's text and persists the vector
func (e *Engine) embedSource(source *store.Item) error {
	if e.embedder == nil || (source.Content == "" && source.Title == "") {
		return nil
	}
	text := source.Title
	if source.Content != "" {
		text = source.Title + "\n\n" + source.Content
	}
	emb, err := e.embedder.Embed(text)
	if err != nil {
		return err
	}
	source.Embedding = emb
	if err := e.repo.UpsertItem(source); err != nil {
		return fmt.Errorf("persist embedding: %w", err)
	}
	return nil
}

// discover fans out one candidate fetch per target type and joins all pools
// before scoring begins. Fetch errors fail the whole discovery; scoring never
// starts on a partial pool.
func (e *Engine) discover(source *store.Item, against []store.ItemType) ([]scored, error) {
	if len(against) == 0 {
		for _, t := range store.AllItemTypes {
			if t != source.Type {
				against = append(against, t)
			}
		}
	}

	exclude, err := e.repo.ConnectedRefs(source.Ref())
	if err != nil {
		return nil, fmt.Errorf("fetch connected refs: %w", err)
	}
	exclude = append(exclude, source.Ref())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		pool     []*store.Item
		fetchErr error
	)
	for _, t := range against {
		wg.Add(1)
		go func(t store.ItemType) {
			defer wg.Done()
			items, err := e.repo.Candidates(t, source.Embedding, exclude, e.params.PoolCap)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fetchErr == nil {
					fetchErr = fmt.Errorf("fetch %s candidates: %w", t, err)
				}
				return
			}
			pool = append(pool, items...)
		}(t)
	}
	wg.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}

	out := make([]scored, 0, len(pool))
	for _, it := range pool {
		sim := embedding.CosineSimilarity(source.Embedding, it.Embedding)
		out = append(out, scored{item: it, sim: sim})
	}
	return out, nil
}

// decide sorts the pool by similarity, truncates to the top-K window and
// applies the threshold policy to each survivor
func (e *Engine) decide(source *store.Item, pool []scored) (*Result, error) {
	sort.Slice(pool, func(i, j int) bool { return pool[i].sim > pool[j].sim })

	window := pool
	if len(window) > e.params.TopK {
		window = window[:e.params.TopK]
	}

	result := &Result{Candidates: []Candidate{}}
	var suggestions []*store.Suggestion

	for _, sc := range window {
		target := sc.item.Ref()

		// Pre-check is an optimization; the pair_key UNIQUE index is what
		// actually holds the invariant under concurrency
		exists, err := e.repo.ConnectionExists(source.Ref(), target)
		if err != nil {
			return nil, fmt.Errorf("check existing connection: %w", err)
		}
		if exists {
			continue
		}

		switch {
		case sc.sim > e.params.AutoLinkThreshold:
			created, err := e.repo.InsertConnection(&store.Connection{
				Source:    source.Ref(),
				Target:    target,
				CreatedBy: store.CreatedByAI,
				Reasoning: fmt.Sprintf("%d%% semantic match", int(math.Round(sc.sim*100))),
			})
			if err != nil {
				return nil, fmt.Errorf("insert connection: %w", err)
			}
			if created {
				result.AutoLinked++
				logging.Debug("linking", "auto-linked %s -> %s (%.3f)",
					source.Ref().Key(), target.Key(), sc.sim)
			}
		case sc.sim >= e.params.SuggestThreshold:
			suggestions = append(suggestions, &store.Suggestion{
				From:       source.Ref(),
				To:         target,
				Confidence: sc.sim,
				Reasoning:  fmt.Sprintf("%d%% semantic match", int(math.Round(sc.sim*100))),
				Status:     store.SuggestionPending,
			})
		}
	}

	// Best-effort batch: per-row failures are logged inside and skipped
	inserted, err := e.repo.InsertSuggestions(suggestions)
	if err != nil {
		return nil, fmt.Errorf("insert suggestions: %w", err)
	}
	result.Suggestions = inserted

	for i, sc := range pool {
		if i >= 5 {
			break
		}
		result.Candidates = append(result.Candidates, Candidate{
			Type:       sc.item.Type,
			ID:         sc.item.ID,
			Title:      sc.item.Title,
			Similarity: sc.sim,
		})
	}

	logging.Info("linking", "%s: %d auto-linked, %d suggested from %d candidates",
		source.Ref().Key(), result.AutoLinked, result.Suggestions, len(pool))
	return result, nil
}
