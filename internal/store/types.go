package store

import (
	"fmt"
	"time"
)

// ItemType identifies the content variant of an item
type ItemType string

const (
	ItemThought ItemType = "thought"
	ItemProject ItemType = "project"
	ItemArticle ItemType = "article"
)

// AllItemTypes lists every content variant, in stable order
var AllItemTypes = []ItemType{ItemThought, ItemProject, ItemArticle}

// Valid reports whether t is a known item type
func (t ItemType) Valid() bool {
	switch t {
	case ItemThought, ItemProject, ItemArticle:
		return true
	}
	return false
}

// ItemRef identifies one item endpoint of a connection
type ItemRef struct {
	Type ItemType `json:"type"`
	ID   string   `json:"id"`
}

// Key returns a stable "type:id" string for the ref
func (r ItemRef) Key() string {
	return string(r.Type) + ":" + r.ID
}

// Item is the minimal projection of a content node used by the engine.
// Embedding may be nil when the item has not been embedded yet; such items
// are excluded from linking and clustering.
type Item struct {
	ID        string    `json:"id"`
	Type      ItemType  `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref returns the item's endpoint reference
func (it *Item) Ref() ItemRef {
	return ItemRef{Type: it.Type, ID: it.ID}
}

// Creator of a connection
const (
	CreatedByUser = "user"
	CreatedByAI   = "ai"
)

// Connection is a persisted strong edge between two items. At most one
// connection may exist per unordered endpoint pair, regardless of direction.
type Connection struct {
	ID             string    `json:"id"`
	Source         ItemRef   `json:"source"`
	Target         ItemRef   `json:"target"`
	ConnectionType string    `json:"connection_type"`
	CreatedBy      string    `json:"created_by"` // "user" or "ai"
	Reasoning      string    `json:"reasoning,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SuggestionStatus is the lifecycle state of a connection suggestion.
// Accepted and dismissed are terminal.
type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionAccepted  SuggestionStatus = "accepted"
	SuggestionDismissed SuggestionStatus = "dismissed"
)

// Suggestion is a weaker candidate edge awaiting user accept/dismiss
type Suggestion struct {
	ID         string           `json:"id"`
	From       ItemRef          `json:"from"`
	To         ItemRef          `json:"to"`
	Confidence float64          `json:"confidence"`
	Reasoning  string           `json:"reasoning,omitempty"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// PairKey builds the normalized unordered-pair key for two endpoints. The
// smaller "type:id" string always comes first, so both directions of the same
// edge map to one key. The connections table carries a UNIQUE index on this
// key, making inserts idempotent instead of relying on a read-then-write check.
func PairKey(a, b ItemRef) string {
	ak, bk := a.Key(), b.Key()
	if ak > bk {
		ak, bk = bk, ak
	}
	return ak + "|" + bk
}

// ErrSelfEdge is returned when a connection or suggestion would link an item
// to itself.
var ErrSelfEdge = fmt.Errorf("cannot connect an item to itself")
