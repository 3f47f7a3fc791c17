package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Evaluation Handlers

type EvalParams struct {
	Session string `json:"session" jsonschema:"session to evaluate in"`
	Input   string `json:"input" jsonschema:"GHCi input line, an expression or a :command"`
}

func (s *Server) handleEval(ctx context.Context, request *mcp.CallToolRequest, params *EvalParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireWriteAccess(ctx); err != nil {
		return nil, nil, err
	}
	if params.Session == "" {
		return nil, nil, fmt.Errorf("session is required")
	}
	if params.Input == "" {
		return nil, nil, fmt.Errorf("input is required")
	}

	response, err := s.sessionMgr.Eval(ctx, params.Session, params.Input)
	if err != nil {
		return nil, nil, err
	}
	return NewTextResult(response), nil, nil
}

type CompleteParams struct {
	Session string `json:"session" jsonschema:"session to complete in"`
	Input   string `json:"input" jsonschema:"identifier prefix to complete"`
}

func (s *Server) handleComplete(ctx context.Context, request *mcp.CallToolRequest, params *CompleteParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAuth(ctx); err != nil {
		return nil, nil, err
	}
	if params.Session == "" {
		return nil, nil, fmt.Errorf("session is required")
	}

	comps, err := s.sessionMgr.Complete(ctx, params.Session, params.Input)
	if err != nil {
		return nil, nil, err
	}

	if len(comps.Candidates) == 0 {
		return NewTextResult(fmt.Sprintf("No completions for %q.", params.Input)), nil, nil
	}

	result := fmt.Sprintf("%d of %d completion(s) for %q (prefix %q):\n",
		len(comps.Candidates), comps.Total, params.Input, comps.Prefix)
	result += strings.Join(comps.Candidates, "\n")
	return NewTextResult(result), nil, nil
}

type HistoryParams struct {
	Session string `json:"session" jsonschema:"session whose history to list"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum entries to return (default 20)"`
}

func (s *Server) handleHistory(ctx context.Context, request *mcp.CallToolRequest, params *HistoryParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAuth(ctx); err != nil {
		return nil, nil, err
	}
	if s.histStore == nil {
		return nil, nil, fmt.Errorf("history is disabled")
	}
	if params.Session == "" {
		return nil, nil, fmt.Errorf("session is required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.histStore.List(params.Session, limit)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return NewTextResult(fmt.Sprintf("No history for session %s.", params.Session)), nil, nil
	}

	result := fmt.Sprintf("Last %d command(s) for %s (newest first):\n\n", len(entries), params.Session)
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = "error: " + e.Error
		}
		result += fmt.Sprintf("[%s] %s (%dms, %s)\n", e.StartedAt.Format("15:04:05"), e.Request, e.DurationMs, status)
		if e.Response != "" {
			result += indent(e.Response) + "\n"
		}
	}
	return NewTextResult(result), nil, nil
}

func indent(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
