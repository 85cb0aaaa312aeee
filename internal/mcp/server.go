// Package mcp exposes the workout catalog and completion history to MCP
// clients. All tools are read-only; sessions and minting stay on the HTTP
// API where the caller obligations are enforced.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/history"
)

// New creates an MCP server with all tools and resources registered.
func New(cat *catalog.Catalog, store *history.Store, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("stoicmint", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("STOIC workout tracker. Query the workout catalog, today's workout, and the completion history with NFT mint status."),
	)

	h := &handlers{cat: cat, store: store, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetTodaysWorkout, Handler: h.getTodaysWorkout},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetCompletionHistory, Handler: h.getCompletionHistory},
	)

	s.AddResources(
		server.ServerResource{Resource: resTodaysWorkout, Handler: h.todaysWorkoutResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	cat   *catalog.Catalog
	store *history.Store
	log   *slog.Logger
}

var resTodaysWorkout = mcp.NewResource(
	"stoicmint://todays_workout",
	"Today's Workout",
	mcp.WithResourceDescription("The workout of the day with its full exercise list"),
	mcp.WithMIMEType("application/json"),
)
