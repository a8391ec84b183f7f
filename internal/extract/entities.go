// Package extract pulls named entities out of thought text. The entity sets
// feed the entity-overlap bridge signal; only people, places and topics are
// kept; dates, times and numerics don't identify what a thought is about.
package extract

import (
	"strings"

	"github.com/tsawler/prose/v3"
)

// Entity kinds bucketing extracted entities for the overlap signal
const (
	KindPerson = "person"
	KindPlace  = "place"
	KindTopic  = "topic"
)

// noiseEntities filters pronouns and conversational fragments that prose
// occasionally tags as entities
var noiseEntities = map[string]bool{
	"i": true, "me": true, "my": true, "you": true, "your": true,
	"he": true, "him": true, "his": true, "she": true, "her": true,
	"it": true, "its": true, "they": true, "them": true, "their": true,
	"we": true, "us": true, "our": true,
	"this": true, "that": true, "these": true, "those": true,
	"ok": true, "okay": true, "yes": true, "no": true, "done": true,
	"today": true, "tomorrow": true, "yesterday": true,
}

// Extractor performs NER-based entity extraction
type Extractor struct{}

// NewExtractor creates a prose-backed extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// proseToKind maps prose's OntoNotes labels onto the three overlap buckets.
// Temporal and numeric labels return "" and are dropped.
func proseToKind(label string) string {
	switch strings.ToUpper(label) {
	case "PERSON":
		return KindPerson
	case "GPE", "LOC", "FAC":
		return KindPlace
	case "ORG", "PRODUCT", "EVENT", "WORK_OF_ART", "NORP", "LANGUAGE", "LAW":
		return KindTopic
	default:
		return ""
	}
}

// Entities extracts the entity set for a piece of text, keyed by lowercased
// name with the kind as value. Returns an empty map (not an error) when the
// text yields nothing.
func (e *Extractor) Entities(text string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(text) == "" {
		return out
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return out
	}

	for _, ent := range doc.Entities() {
		kind := proseToKind(ent.Label)
		if kind == "" {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(ent.Text))
		if name == "" || len(name) < 2 || noiseEntities[name] {
			continue
		}
		if _, seen := out[name]; !seen {
			out[name] = kind
		}
	}
	return out
}

// Names returns just the entity names
func (e *Extractor) Names(text string) []string {
	entities := e.Entities(text)
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	return names
}

// Overlap computes the entity-overlap score between two entity name sets:
// |shared| / max(|a|, |b|). The second return is the shared-entity count; the
// signal only qualifies when at least two entities are shared, which the
// caller checks.
func Overlap(a, b map[string]string) (float64, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}

	var shared int
	for name := range a {
		if _, ok := b[name]; ok {
			shared++
		}
	}

	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return float64(shared) / float64(max), shared
}
