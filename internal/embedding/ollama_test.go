package embedding

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeOllama serves the two Ollama endpoints the client uses. Prompts
// containing "boom" get a 500 so provider failures can be triggered per text.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Prompt == "boom" {
			http.Error(w, "model exploded", http.StatusInternalServerError)
			return
		}

		switch r.URL.Path {
		case "/api/embeddings":
			json.NewEncoder(w).Encode(map[string]any{
				"embedding": []float64{0.1, 0.2, 0.3},
			})
		case "/api/generate":
			json.NewEncoder(w).Encode(map[string]any{
				"response": "Gardening (" + req.Model + ")",
				"done":     true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestEmbed(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	c := NewClient(srv.URL, "test-embed")
	emb, err := c.Embed("morning pages")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(emb) != 3 || emb[1] != 0.2 {
		t.Errorf("embedding = %v", emb)
	}
}

func TestEmbedEmptyText(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	c := NewClient(srv.URL, "test-embed")
	if _, err := c.Embed(""); err == nil {
		t.Error("empty text should error")
	} else if errors.Is(err, ErrUnavailable) {
		t.Error("empty text is a caller mistake, not a provider outage")
	}
}

func TestEmbedUnreachable(t *testing.T) {
	srv := fakeOllama(t)
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, "test-embed")
	if _, err := c.Embed("anything"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestBatchEmbedNilSlotForBadText(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	c := NewClient(srv.URL, "test-embed")
	embs, err := c.BatchEmbed([]string{"first", "", "third"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("slots = %d, want 3", len(embs))
	}
	if embs[0] == nil || embs[2] == nil {
		t.Error("good texts lost their embeddings")
	}
	if embs[1] != nil {
		t.Errorf("empty text slot = %v, want nil", embs[1])
	}
}

func TestBatchEmbedAbortsOnOutage(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	c := NewClient(srv.URL, "test-embed")
	embs, err := c.BatchEmbed([]string{"first", "boom", "never reached"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
	// Partial results before the failure are kept
	if len(embs) != 1 || embs[0] == nil {
		t.Errorf("partial batch = %v, want one embedding", embs)
	}
}

func TestGenerate(t *testing.T) {
	srv := fakeOllama(t)
	defer srv.Close()

	c := NewClient(srv.URL, "test-embed")
	c.SetGenerationModel("test-gen")

	got, err := c.Generate("name this theme")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	// The fake echoes the model so the generation model override is visible
	if got != "Gardening (test-gen)" {
		t.Errorf("response = %q", got)
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := fakeOllama(t)
	srv.Close()

	c := NewClient(srv.URL, "test-embed")
	if _, err := c.Generate("anything"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}
