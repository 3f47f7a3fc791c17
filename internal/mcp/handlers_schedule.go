package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Schedule Handlers

type ScheduleListParams struct{}

func (s *Server) handleScheduleList(ctx context.Context, request *mcp.CallToolRequest, params *ScheduleListParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAuth(ctx); err != nil {
		return nil, nil, err
	}
	if s.scheduleRunner == nil {
		return NewTextResult("No schedules configured."), nil, nil
	}

	entries := s.scheduleRunner.Entries()
	if len(entries) == 0 {
		return NewTextResult("No schedules configured."), nil, nil
	}

	result := fmt.Sprintf("Found %d schedule(s):\n\n", len(entries))
	for _, e := range entries {
		state := "idle"
		if s.scheduleRunner.IsRunning(e.Name) {
			state = "running"
		}
		result += fmt.Sprintf("• %s\n", e.Name)
		result += fmt.Sprintf("  Session:  %s\n", e.Session)
		result += fmt.Sprintf("  Command:  %s\n", e.Command)
		result += fmt.Sprintf("  State:    %s\n", state)
		result += fmt.Sprintf("  Next run: %s\n\n", e.NextRunAt().Format(time.RFC3339))
	}
	return NewTextResult(result), nil, nil
}

type ScheduleRunParams struct {
	Name string `json:"name" jsonschema:"schedule entry to trigger immediately"`
}

func (s *Server) handleScheduleRun(ctx context.Context, request *mcp.CallToolRequest, params *ScheduleRunParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireWriteAccess(ctx); err != nil {
		return nil, nil, err
	}
	if s.scheduleRunner == nil {
		return nil, nil, fmt.Errorf("no schedules configured")
	}
	if params.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}

	out, err := s.scheduleRunner.TriggerNow(params.Name)
	if err != nil {
		return nil, nil, err
	}
	return NewTextResult(fmt.Sprintf("Schedule %s executed.\n\n%s", params.Name, out)), nil, nil
}
