package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Session Lifecycle Handlers

type SessionStartParams struct {
	Name    string `json:"name" jsonschema:"session name, must be unique"`
	Profile string `json:"profile,omitempty" jsonschema:"REPL profile from the server configuration (default: ghci)"`
}

func (s *Server) handleSessionStart(ctx context.Context, request *mcp.CallToolRequest, params *SessionStartParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireWriteAccess(ctx); err != nil {
		return nil, nil, err
	}
	if params.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	profile := params.Profile
	if profile == "" {
		profile = "ghci"
	}

	sess, err := s.sessionMgr.Start(ctx, params.Name, profile)
	if err != nil {
		return nil, nil, err
	}

	return NewTextResult(fmt.Sprintf("Session %s started (profile %s).", sess.Name, sess.Profile)), nil, nil
}

type SessionStopParams struct {
	Name string `json:"name" jsonschema:"session to stop"`
}

func (s *Server) handleSessionStop(ctx context.Context, request *mcp.CallToolRequest, params *SessionStopParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireWriteAccess(ctx); err != nil {
		return nil, nil, err
	}
	if params.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	if err := s.sessionMgr.Stop(params.Name); err != nil {
		return nil, nil, err
	}
	return NewTextResult(fmt.Sprintf("Session %s stopped.", params.Name)), nil, nil
}

type SessionRestartParams struct {
	Name string `json:"name" jsonschema:"session to restart"`
}

func (s *Server) handleSessionRestart(ctx context.Context, request *mcp.CallToolRequest, params *SessionRestartParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireWriteAccess(ctx); err != nil {
		return nil, nil, err
	}
	if params.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	sess, err := s.sessionMgr.Restart(ctx, params.Name)
	if err != nil {
		return nil, nil, err
	}
	return NewTextResult(fmt.Sprintf("Session %s restarted (profile %s). Pending commands were discarded.", sess.Name, sess.Profile)), nil, nil
}

type SessionListParams struct{}

func (s *Server) handleSessionList(ctx context.Context, request *mcp.CallToolRequest, params *SessionListParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAuth(ctx); err != nil {
		return nil, nil, err
	}

	infos := s.sessionMgr.List()
	if len(infos) == 0 {
		return NewTextResult("No sessions running."), nil, nil
	}

	result := fmt.Sprintf("Found %d session(s):\n\n", len(infos))
	for _, info := range infos {
		state := "idle"
		if !info.Alive {
			state = "dead"
		} else if info.Busy {
			state = "busy"
		}
		result += fmt.Sprintf("• %s\n", info.Name)
		result += fmt.Sprintf("  Profile:  %s\n", info.Profile)
		result += fmt.Sprintf("  State:    %s\n", state)
		result += fmt.Sprintf("  Queued:   %d\n", info.QueueDepth)
		result += fmt.Sprintf("  Started:  %s\n\n", info.StartedAt.Format(time.RFC3339))
	}
	return NewTextResult(result), nil, nil
}
