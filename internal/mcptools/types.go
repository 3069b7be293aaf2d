package mcptools

import "github.com/dusk-indust/diverge/internal/orchestrator"

// ProposeInput is the input for the propose_solutions tool.
type ProposeInput struct {
	Problem string `json:"problem" jsonschema:"the problem to solve, in plain language"`
}

// ProposeOutput is the result of the propose_solutions tool.
type ProposeOutput struct {
	RunID        string                     `json:"runId"`
	Perspectives []orchestrator.Perspective `json:"perspectives"`
	Candidates   int                        `json:"candidates"`
	Solutions    []orchestrator.Solution    `json:"solutions"`
	Path         string                     `json:"path" jsonschema:"which reduction stage produced the solutions"`
	Backend      string                     `json:"backend"`
	ElapsedMs    int64                      `json:"elapsedMs"`
}

// ListBackendsInput is the input for the list_backends tool.
type ListBackendsInput struct{}

// ListBackendsOutput is the result of the list_backends tool.
type ListBackendsOutput struct {
	Roster          []string `json:"roster"`
	Expander        string   `json:"expander"`
	PrimaryJudge    string   `json:"primaryJudge"`
	AlternateJudges []string `json:"alternateJudges"`
	DirectFallbacks []string `json:"directFallbacks"`
}
