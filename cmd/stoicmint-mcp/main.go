// stoicmint-mcp serves the workout catalog and completion history to MCP
// clients over stdio. Read-only: it opens the same history database as the
// main binary but never writes to it.
package main

import (
	"flag"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/history"
	"github.com/claude/stoicmint/internal/mcp"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	dbPath := flag.String("history-db", "stoicmint.db", "path to the history database")
	flag.Parse()

	// stdout carries the MCP protocol; log to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cat, err := catalog.Load()
	if err != nil {
		log.Error("failed to load workout catalog", "error", err)
		os.Exit(1)
	}

	store, err := history.Open(*dbPath, log)
	if err != nil {
		log.Error("failed to open history store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	s := mcp.New(cat, store, Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
