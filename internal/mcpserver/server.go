package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all risk oracle tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("riskoracle", "1.0.0")
	client := NewRiskClient(cfg)
	h := NewHandlers(client, cfg.AgentID)

	s.AddTool(ToolAnalyzeAction, h.HandleAnalyzeAction)
	s.AddTool(ToolRecordAction, h.HandleRecordAction)
	s.AddTool(ToolUpdateReputation, h.HandleUpdateReputation)
	s.AddTool(ToolGetAgentStats, h.HandleGetAgentStats)
	s.AddTool(ToolGetPolicyThresholds, h.HandleGetPolicyThresholds)
	s.AddTool(ToolEvaluatePolicy, h.HandleEvaluatePolicy)
	s.AddTool(ToolListAssessments, h.HandleListAssessments)

	return s
}
