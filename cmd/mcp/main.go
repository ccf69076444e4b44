// Risk oracle MCP server: exposes risk scoring, history and policy lookups
// as MCP tools for LLM agents over stdio.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/riskoracle/internal/mcpserver"
)

func main() {
	_ = godotenv.Load()

	cfg := mcpserver.Config{
		APIURL:  envOrDefault("RISKORACLE_API_URL", "http://localhost:8080"),
		APIKey:  os.Getenv("RISKORACLE_API_KEY"),
		AgentID: os.Getenv("RISKORACLE_AGENT_ID"),
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
