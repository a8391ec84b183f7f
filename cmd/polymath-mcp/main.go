// polymath-mcp exposes the graph engine over MCP (stdio) so editors and
// assistants can trigger linking runs, rebuild the map and work through
// pending suggestions.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/polymath-app/polymath/internal/config"
	"github.com/polymath-app/polymath/internal/embedding"
	"github.com/polymath-app/polymath/internal/linking"
	"github.com/polymath-app/polymath/internal/store"
	"github.com/polymath-app/polymath/internal/worldmap"
)

type app struct {
	db     *store.DB
	engine *linking.Engine
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("POLYMATH_CONFIG")
	if configPath == "" {
		configPath = "polymath.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	embedder := embedding.NewClient(cfg.Ollama.URL, cfg.Ollama.EmbedModel)
	a := &app{db: db, engine: linking.NewEngine(db, embedder, cfg.Linking)}

	s := server.NewMCPServer(
		"polymath-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.AddTool(linkItemTool(), a.handleLinkItem)
	s.AddTool(rebuildMapTool(), a.handleRebuildMap)
	s.AddTool(listSuggestionsTool(), a.handleListSuggestions)
	s.AddTool(resolveSuggestionTool(), a.handleResolveSuggestion)
	s.AddTool(mapSummaryTool(), a.handleMapSummary)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func linkItemTool() mcp.Tool {
	return mcp.NewTool("link_item",
		mcp.WithDescription("Run connection discovery for one item: auto-link strong semantic matches, record suggestions for weaker ones, and return the scored candidate preview."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Item type: thought, project or article"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Item id"),
		),
	)
}

func (a *app) handleLinkItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	itemType, _ := args["type"].(string)
	id, _ := args["id"].(string)

	result, err := a.engine.LinkItem(linking.Request{
		Type: store.ItemType(itemType),
		ID:   id,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("linking failed: %v", err)), nil
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func rebuildMapTool() mcp.Tool {
	return mcp.NewTool("rebuild_map",
		mcp.WithDescription("Rebuild the spatial map from scratch: cluster all embedded items, lay out cities and roads, persist the new version."),
	)
}

func (a *app) handleRebuildMap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := a.db.AllEmbedded()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch items: %v", err)), nil
	}

	version, _, err := a.db.LatestMap()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read map version: %v", err)), nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	m := worldmap.Build(items, rng, version+1)

	payload, err := json.Marshal(m)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal map: %v", err)), nil
	}
	if _, err := a.db.SaveMap(payload); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save map: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Rebuilt map v%d: %d cities, %d roads from %d items",
		m.Version, len(m.Cities), len(m.Roads), len(items))), nil
}

func listSuggestionsTool() mcp.Tool {
	return mcp.NewTool("list_suggestions",
		mcp.WithDescription("List connection suggestions awaiting accept/dismiss."),
		mcp.WithString("status",
			mcp.Description("Status filter: pending (default), accepted, dismissed"),
		),
	)
}

func (a *app) handleListSuggestions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	status, _ := args["status"].(string)
	if status == "" {
		status = string(store.SuggestionPending)
	}

	suggestions, err := a.db.ListSuggestions(store.SuggestionStatus(status), 50)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list suggestions: %v", err)), nil
	}

	out, _ := json.MarshalIndent(suggestions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func resolveSuggestionTool() mcp.Tool {
	return mcp.NewTool("resolve_suggestion",
		mcp.WithDescription("Accept or dismiss a pending connection suggestion. Accepting creates the connection."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Suggestion id"),
		),
		mcp.WithBoolean("accept",
			mcp.Required(),
			mcp.Description("true to accept (creates the connection), false to dismiss"),
		),
	)
}

func (a *app) handleResolveSuggestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	id, _ := args["id"].(string)
	accept, _ := args["accept"].(bool)

	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	if err := a.db.ResolveSuggestion(id, accept); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve suggestion: %v", err)), nil
	}

	verb := "dismissed"
	if accept {
		verb = "accepted"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Suggestion %s %s", id, verb)), nil
}

func mapSummaryTool() mcp.Tool {
	return mcp.NewTool("map_summary",
		mcp.WithDescription("Summarize the latest persisted map: version, cities with size tiers, road counts."),
	)
}

func (a *app) handleMapSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	version, payload, err := a.db.LatestMap()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load map: %v", err)), nil
	}
	if payload == nil {
		return mcp.NewToolResultText("No map has been built yet"), nil
	}

	var m worldmap.Map
	if err := json.Unmarshal(payload, &m); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse stored map: %v", err)), nil
	}

	out := fmt.Sprintf("Map v%d: %d cities, %d roads\n", version, len(m.Cities), len(m.Roads))
	for _, c := range m.Cities {
		out += fmt.Sprintf("  %s (%s, pop %d)\n", c.Label, c.Size, c.Population)
	}
	return mcp.NewToolResultText(out), nil
}
