package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the risk oracle MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var agentTypes = []string{"general", "financial", "medical", "legal", "technical"}

var ToolAnalyzeAction = mcp.NewTool("analyze_action",
	mcp.WithDescription(
		"Score a proposed agent action for risk before executing it. "+
			"Returns a 0-100 risk score, a level (low/medium/high/critical), the flags that raised it, "+
			"whether the action should be blocked, and the thresholds for the agent type. "+
			"Call this BEFORE doing anything irreversible."),
	mcp.WithString("agent_id",
		mcp.Description("Agent whose behavior is being scored. Defaults to the configured agent.")),
	mcp.WithString("agent_type",
		mcp.Description("Domain of the agent, selects type-specific rules and thresholds"),
		mcp.Enum(agentTypes...)),
	mcp.WithObject("inputs",
		mcp.Description("Inputs of the action, e.g. {\"amount\": 15000, \"query\": \"...\"}")),
	mcp.WithObject("outputs",
		mcp.Description("Outputs produced so far, e.g. {\"confidence\": 0.82}")),
	mcp.WithString("model",
		mcp.Description("Model that produced the action")),
	mcp.WithObject("meta",
		mcp.Description("Optional policy metadata, e.g. {\"type\": \"order\", \"amount_usd\": 15000}")),
	mcp.WithBoolean("record",
		mcp.Description("Append the action to the agent's history when it is not blocked")),
)

var ToolRecordAction = mcp.NewTool("record_action",
	mcp.WithDescription(
		"Record an action the agent actually performed so future analyses compare against it. "+
			"Only record committed actions; analysis alone does not change history."),
	mcp.WithString("agent_id",
		mcp.Description("Agent that performed the action. Defaults to the configured agent.")),
	mcp.WithObject("inputs",
		mcp.Description("Inputs of the action")),
	mcp.WithObject("outputs",
		mcp.Description("Outputs of the action")),
	mcp.WithString("model",
		mcp.Description("Model that produced the action")),
)

var ToolUpdateReputation = mcp.NewTool("update_reputation",
	mcp.WithDescription(
		"Report whether an agent's action turned out well or badly. "+
			"Reputation starts at 50 and moves by delta (default 5), clamped to 0-100."),
	mcp.WithString("agent_id",
		mcp.Description("Agent being evaluated. Defaults to the configured agent.")),
	mcp.WithBoolean("good",
		mcp.Required(),
		mcp.Description("true if the outcome was good, false if it was bad")),
	mcp.WithNumber("delta",
		mcp.Description("Non-negative size of the adjustment (default 5)")),
)

var ToolGetAgentStats = mcp.NewTool("get_agent_stats",
	mcp.WithDescription(
		"Get an agent's recorded action count, reputation (0-100) and risk profile (trusted/neutral/risky)."),
	mcp.WithString("agent_id",
		mcp.Description("Agent to inspect. Defaults to the configured agent.")),
)

var ToolGetPolicyThresholds = mcp.NewTool("get_policy_thresholds",
	mcp.WithDescription(
		"Get the block and flag score thresholds and the minimum confidence for an agent type. "+
			"Unknown types fall back to the general thresholds."),
	mcp.WithString("agent_type",
		mcp.Required(),
		mcp.Description("Agent type, e.g. 'financial'")),
)

var ToolEvaluatePolicy = mcp.NewTool("evaluate_policy",
	mcp.WithDescription(
		"Run the static policy rules (trading limits, medical confidence, legal disclaimers, "+
			"dangerous SQL, request rate) over an action without scoring it."),
	mcp.WithObject("inputs",
		mcp.Description("Inputs of the action")),
	mcp.WithObject("outputs",
		mcp.Description("Outputs of the action")),
	mcp.WithObject("meta",
		mcp.Description("Policy metadata, e.g. {\"type\": \"medical\"}")),
)

var ToolListAssessments = mcp.NewTool("list_assessments",
	mcp.WithDescription(
		"List an agent's most recent risk verdicts, newest first."),
	mcp.WithString("agent_id",
		mcp.Description("Agent to inspect. Defaults to the configured agent.")),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of verdicts to return (default 10)")),
)
