package store

import (
	"os"
	"testing"
	"time"
)

// setupTestDB creates a temporary test database
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := Open(tmpDir)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
	return db, cleanup
}

func addTestItem(t *testing.T, db *DB, itemType ItemType, id, title string, emb []float64) *Item {
	t.Helper()
	it := &Item{ID: id, Type: itemType, Title: title, Embedding: emb}
	if err := db.UpsertItem(it); err != nil {
		t.Fatalf("Failed to add item %s: %v", id, err)
	}
	return it
}

func TestUpsertAndGetItem(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addTestItem(t, db, ItemThought, "t1", "Morning pages", []float64{0.1, 0.2, 0.3})

	got, err := db.GetItem(ItemRef{Type: ItemThought, ID: "t1"})
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected item, got nil")
	}
	if got.Title != "Morning pages" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Errorf("embedding round-trip failed: %v", got.Embedding)
	}

	// Update replaces fields
	got.Title = "Evening pages"
	if err := db.UpsertItem(got); err != nil {
		t.Fatalf("Upsert update failed: %v", err)
	}
	again, _ := db.GetItem(got.Ref())
	if again.Title != "Evening pages" {
		t.Errorf("update not applied: %q", again.Title)
	}
}

func TestGetItemMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := db.GetItem(ItemRef{Type: ItemArticle, ID: "nope"})
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing item")
	}
}

func TestConnectionUniquenessBothDirections(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := ItemRef{Type: ItemThought, ID: "a"}
	b := ItemRef{Type: ItemArticle, ID: "b"}

	created, err := db.InsertConnection(&Connection{Source: a, Target: b, CreatedBy: CreatedByAI})
	if err != nil {
		t.Fatalf("InsertConnection failed: %v", err)
	}
	if !created {
		t.Fatal("expected first insert to create")
	}

	// Same direction again
	created, err = db.InsertConnection(&Connection{Source: a, Target: b, CreatedBy: CreatedByAI})
	if err != nil {
		t.Fatalf("duplicate insert errored: %v", err)
	}
	if created {
		t.Error("duplicate insert reported created=true")
	}

	// Reversed direction
	created, err = db.InsertConnection(&Connection{Source: b, Target: a, CreatedBy: CreatedByUser})
	if err != nil {
		t.Fatalf("reversed insert errored: %v", err)
	}
	if created {
		t.Error("reversed duplicate reported created=true")
	}

	conns, err := db.ConnectionsFor(a)
	if err != nil {
		t.Fatalf("ConnectionsFor failed: %v", err)
	}
	if len(conns) != 1 {
		t.Errorf("expected exactly one connection, got %d", len(conns))
	}
}

func TestInsertConnectionRejectsSelfEdge(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := ItemRef{Type: ItemThought, ID: "a"}
	if _, err := db.InsertConnection(&Connection{Source: a, Target: a, CreatedBy: CreatedByAI}); err == nil {
		t.Error("expected self-edge to be rejected")
	}
}

func TestConnectionExistsEitherDirection(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := ItemRef{Type: ItemProject, ID: "p1"}
	b := ItemRef{Type: ItemThought, ID: "t1"}
	db.InsertConnection(&Connection{Source: a, Target: b, CreatedBy: CreatedByAI})

	for _, pair := range [][2]ItemRef{{a, b}, {b, a}} {
		exists, err := db.ConnectionExists(pair[0], pair[1])
		if err != nil {
			t.Fatalf("ConnectionExists failed: %v", err)
		}
		if !exists {
			t.Errorf("expected connection to exist for %s -> %s", pair[0].Key(), pair[1].Key())
		}
	}
}

func TestConnectedRefs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := ItemRef{Type: ItemThought, ID: "a"}
	b := ItemRef{Type: ItemArticle, ID: "b"}
	c := ItemRef{Type: ItemProject, ID: "c"}
	db.InsertConnection(&Connection{Source: a, Target: b, CreatedBy: CreatedByAI})
	db.InsertConnection(&Connection{Source: c, Target: a, CreatedBy: CreatedByUser})

	refs, err := db.ConnectedRefs(a)
	if err != nil {
		t.Fatalf("ConnectedRefs failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 connected refs, got %d", len(refs))
	}
	seen := map[string]bool{}
	for _, r := range refs {
		seen[r.Key()] = true
	}
	if !seen[b.Key()] || !seen[c.Key()] {
		t.Errorf("wrong refs: %v", refs)
	}
}

func TestSuggestionBatchAndPendingDedupe(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := ItemRef{Type: ItemThought, ID: "a"}
	b := ItemRef{Type: ItemArticle, ID: "b"}
	c := ItemRef{Type: ItemProject, ID: "c"}

	inserted, err := db.InsertSuggestions([]*Suggestion{
		{From: a, To: b, Confidence: 0.6},
		{From: a, To: c, Confidence: 0.7},
		{From: a, To: a, Confidence: 0.9}, // self, skipped
	})
	if err != nil {
		t.Fatalf("InsertSuggestions failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	// Re-running the same batch must not pile up pending duplicates
	inserted, err = db.InsertSuggestions([]*Suggestion{
		{From: b, To: a, Confidence: 0.65}, // same pair, reversed
	})
	if err != nil {
		t.Fatalf("InsertSuggestions failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("duplicate pending suggestion inserted: %d", inserted)
	}

	pending, err := db.ListSuggestions(SuggestionPending, 10)
	if err != nil {
		t.Fatalf("ListSuggestions failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestResolveSuggestion(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := ItemRef{Type: ItemThought, ID: "a"}
	b := ItemRef{Type: ItemArticle, ID: "b"}
	db.InsertSuggestions([]*Suggestion{{From: a, To: b, Confidence: 0.6}})
	pending, _ := db.ListSuggestions(SuggestionPending, 1)
	if len(pending) != 1 {
		t.Fatal("expected one pending suggestion")
	}
	id := pending[0].ID

	if err := db.ResolveSuggestion(id, true); err != nil {
		t.Fatalf("ResolveSuggestion failed: %v", err)
	}

	// Accepting created the connection with created_by = user
	conns, _ := db.ConnectionsFor(a)
	if len(conns) != 1 {
		t.Fatalf("expected connection after accept, got %d", len(conns))
	}
	if conns[0].CreatedBy != CreatedByUser {
		t.Errorf("created_by = %q, want user", conns[0].CreatedBy)
	}

	// Terminal: resolving again is an error
	if err := db.ResolveSuggestion(id, false); err == nil {
		t.Error("expected error resolving an accepted suggestion")
	}
}

func TestItemEntitiesRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	it := addTestItem(t, db, ItemThought, "t1", "Coffee with Sarah", nil)
	ref := it.Ref()

	err := db.SetItemEntities(ref, map[string]string{"sarah": "person", "blue bottle": "topic"})
	if err != nil {
		t.Fatalf("SetItemEntities failed: %v", err)
	}

	entities, err := db.ItemEntities(ref)
	if err != nil {
		t.Fatalf("ItemEntities failed: %v", err)
	}
	if len(entities) != 2 || entities["sarah"] != "person" {
		t.Errorf("entities = %v", entities)
	}

	// Replace wipes the previous set
	db.SetItemEntities(ref, map[string]string{"portland": "place"})
	entities, _ = db.ItemEntities(ref)
	if len(entities) != 1 || entities["portland"] != "place" {
		t.Errorf("replacement failed: %v", entities)
	}
}

func TestCandidatesExclusionAndCap(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		addTestItem(t, db, ItemArticle, string(rune('a'+i)), "Article", []float64{1, float64(i) / 10})
	}
	addTestItem(t, db, ItemArticle, "unembedded", "No vector", nil)

	exclude := []ItemRef{{Type: ItemArticle, ID: "a"}, {Type: ItemArticle, ID: "b"}}
	items, err := db.Candidates(ItemArticle, []float64{1, 0}, exclude, 2)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(items))
	}
	for _, it := range items {
		if it.ID == "a" || it.ID == "b" {
			t.Errorf("excluded item %s returned", it.ID)
		}
		if len(it.Embedding) == 0 {
			t.Error("unembedded item returned as candidate")
		}
	}
}

func TestMapPersistence(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	version, payload, err := db.LatestMap()
	if err != nil {
		t.Fatalf("LatestMap failed: %v", err)
	}
	if version != 0 || payload != nil {
		t.Error("expected empty state before first save")
	}

	v1, err := db.SaveMap([]byte(`{"cities":[]}`))
	if err != nil {
		t.Fatalf("SaveMap failed: %v", err)
	}
	v2, err := db.SaveMap([]byte(`{"cities":[{"id":"city-0"}]}`))
	if err != nil {
		t.Fatalf("SaveMap failed: %v", err)
	}
	if v2 <= v1 {
		t.Errorf("versions not increasing: %d then %d", v1, v2)
	}

	version, payload, err = db.LatestMap()
	if err != nil {
		t.Fatalf("LatestMap failed: %v", err)
	}
	if version != v2 {
		t.Errorf("latest version = %d, want %d", version, v2)
	}
	if string(payload) != `{"cities":[{"id":"city-0"}]}` {
		t.Errorf("wrong payload: %s", payload)
	}
}

func TestStatsAndClear(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addTestItem(t, db, ItemThought, "t1", "One", []float64{1, 0})
	db.InsertConnection(&Connection{
		Source:    ItemRef{Type: ItemThought, ID: "t1"},
		Target:    ItemRef{Type: ItemArticle, ID: "a1"},
		CreatedBy: CreatedByAI,
		CreatedAt: time.Now(),
	})

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["items"] != 1 || stats["connections"] != 1 {
		t.Errorf("stats = %v", stats)
	}

	if err := db.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	stats, _ = db.Stats()
	if stats["items"] != 0 || stats["connections"] != 0 {
		t.Errorf("clear left rows: %v", stats)
	}
}

func TestDeleteConnection(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := addTestItem(t, db, ItemThought, "a", "A", []float64{1, 0})
	b := addTestItem(t, db, ItemArticle, "b", "B", []float64{0, 1})

	conn := &Connection{Source: a.Ref(), Target: b.Ref(), CreatedBy: CreatedByUser}
	if _, err := db.InsertConnection(conn); err != nil {
		t.Fatalf("InsertConnection failed: %v", err)
	}

	if err := db.DeleteConnection(conn.ID); err != nil {
		t.Fatalf("DeleteConnection failed: %v", err)
	}
	exists, err := db.ConnectionExists(a.Ref(), b.Ref())
	if err != nil {
		t.Fatalf("ConnectionExists failed: %v", err)
	}
	if exists {
		t.Error("connection still present after delete")
	}

	// The pair can now be linked again
	created, err := db.InsertConnection(&Connection{Source: b.Ref(), Target: a.Ref(), CreatedBy: CreatedByAI})
	if err != nil {
		t.Fatalf("re-insert failed: %v", err)
	}
	if !created {
		t.Error("re-insert after delete reported not created")
	}
}

func TestDeleteItem(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	it := addTestItem(t, db, ItemThought, "gone", "Going away", []float64{1, 0})
	if err := db.SetItemEntities(it.Ref(), map[string]string{"sarah": "person"}); err != nil {
		t.Fatalf("SetItemEntities failed: %v", err)
	}

	if err := db.DeleteItem(it.Ref()); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	got, err := db.GetItem(it.Ref())
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got != nil {
		t.Error("item still present after delete")
	}
	ents, err := db.ItemEntities(it.Ref())
	if err != nil {
		t.Fatalf("ItemEntities failed: %v", err)
	}
	if len(ents) != 0 {
		t.Errorf("entities survived item delete: %v", ents)
	}
}
