package linking

import (
	"fmt"
	"math"

	"github.com/polymath-app/polymath/internal/extract"
	"github.com/polymath-app/polymath/internal/store"
)

// BridgeKind names the strategy that produced a bridge
type BridgeKind string

const (
	BridgeSemantic BridgeKind = "semantic"
	BridgeEntity   BridgeKind = "entity"
	BridgeTemporal BridgeKind = "temporal"
)

// Bridge is an auto-detected thought-to-thought relationship from one of the
// discovery strategies
type Bridge struct {
	From     store.ItemRef `json:"from"`
	To       store.ItemRef `json:"to"`
	Kind     BridgeKind    `json:"kind"`
	Strength float64       `json:"strength"`
	Reason   string        `json:"reason"`
}

// DiscoverBridges runs the three bridge strategies for a thought-type source
// and merges their hits. When more than one strategy fires for the same item
// pair, the first strategy encountered wins and later hits are discarded.
// Because of first-wins the surviving kind depends on strategy order
// (semantic, then entity, then temporal here); that nondeterminism across
// differently-ordered runs is inherited behavior, kept as-is.
func (e *Engine) DiscoverBridges(source *store.Item) ([]Bridge, error) {
	if source.Type != store.ItemThought {
		return nil, fmt.Errorf("%w: bridges only apply to thought items", ErrInvalidRequest)
	}
	if len(source.Embedding) == 0 {
		return nil, nil
	}

	// One candidate pool reused by all strategies: thoughts only
	pool, err := e.discover(source, []store.ItemType{store.ItemThought})
	if err != nil {
		return nil, err
	}

	sourceEntities, err := e.repo.ItemEntities(source.Ref())
	if err != nil {
		return nil, fmt.Errorf("fetch source entities: %w", err)
	}

	var all []Bridge
	all = append(all, e.semanticBridges(source, pool)...)
	entityBridges, err := e.entityBridges(source, sourceEntities, pool)
	if err != nil {
		return nil, err
	}
	all = append(all, entityBridges...)
	all = append(all, e.temporalBridges(source, pool)...)

	return dedupeBridges(all), nil
}

// semanticBridges keeps candidates at or above the suggest threshold
func (e *Engine) semanticBridges(source *store.Item, pool []scored) []Bridge {
	var bridges []Bridge
	for _, sc := range pool {
		if sc.sim < e.params.SuggestThreshold {
			continue
		}
		bridges = append(bridges, Bridge{
			From:     source.Ref(),
			To:       sc.item.Ref(),
			Kind:     BridgeSemantic,
			Strength: sc.sim,
			Reason:   fmt.Sprintf("%d%% semantic match", int(math.Round(sc.sim*100))),
		})
	}
	return bridges
}

// entityBridges keeps candidates sharing at least MinSharedEntities extracted
// entity names with the source; strength is |shared| / max(|a|,|b|)
func (e *Engine) entityBridges(source *store.Item, sourceEntities map[string]string, pool []scored) ([]Bridge, error) {
	if len(sourceEntities) == 0 {
		return nil, nil
	}

	var bridges []Bridge
	for _, sc := range pool {
		candEntities, err := e.repo.ItemEntities(sc.item.Ref())
		if err != nil {
			return nil, fmt.Errorf("fetch candidate entities: %w", err)
		}
		overlap, shared := extract.Overlap(sourceEntities, candEntities)
		if shared < e.params.MinSharedEntities {
			continue
		}
		bridges = append(bridges, Bridge{
			From:     source.Ref(),
			To:       sc.item.Ref(),
			Kind:     BridgeEntity,
			Strength: overlap,
			Reason:   fmt.Sprintf("%d shared entities", shared),
		})
	}
	return bridges, nil
}

// temporalBridges keeps candidates created within the search window of the
// source. Only those inside the (much narrower) qualification window score
// nonzero: strength = 1 - days_apart/window.
func (e *Engine) temporalBridges(source *store.Item, pool []scored) []Bridge {
	var bridges []Bridge
	for _, sc := range pool {
		days := math.Abs(source.CreatedAt.Sub(sc.item.CreatedAt).Hours()) / 24
		if days > e.params.TemporalWindowDays {
			continue
		}
		if days > e.params.TemporalQualifyDays {
			continue
		}
		strength := 1 - days/e.params.TemporalWindowDays
		bridges = append(bridges, Bridge{
			From:     source.Ref(),
			To:       sc.item.Ref(),
			Kind:     BridgeTemporal,
			Strength: strength,
			Reason:   fmt.Sprintf("written within %s", humanDays(days)),
		})
	}
	return bridges
}

// dedupeBridges collapses bridges onto unordered item pairs, first wins
func dedupeBridges(bridges []Bridge) []Bridge {
	seen := make(map[string]bool, len(bridges))
	var out []Bridge
	for _, b := range bridges {
		key := store.PairKey(b.From, b.To)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

func humanDays(days float64) string {
	if days < 1 {
		return fmt.Sprintf("%d hours", int(days*24))
	}
	return fmt.Sprintf("%d day(s)", int(days))
}
