package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/s9gf4ult/haskell-mode/internal/auth"
)

// Token Management Handlers

type TokenCreateParams struct {
	Name  string `json:"name" jsonschema:"human-readable token name"`
	Scope string `json:"scope" jsonschema:"token scope: read, write, or admin"`
}

func (s *Server) handleTokenCreate(ctx context.Context, request *mcp.CallToolRequest, params *TokenCreateParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, nil, err
	}
	if s.authStore == nil {
		return nil, nil, fmt.Errorf("authentication is disabled")
	}
	if params.Name == "" {
		return nil, nil, fmt.Errorf("name is required")
	}
	if !auth.ValidScope(params.Scope) {
		return nil, nil, fmt.Errorf("invalid scope %q. Valid scopes: read, write, admin", params.Scope)
	}

	token, tokenID, err := s.authStore.CreateToken(params.Name, params.Scope, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token: %w", err)
	}

	result := "Token created.\n\n"
	result += fmt.Sprintf("Token: %s\n", tokenID)
	result += fmt.Sprintf("Name:  %s\n", token.Name)
	result += fmt.Sprintf("Scope: %s\n", token.Scope)
	result += "\nSave this token now. It cannot be retrieved later."
	return NewTextResult(result), nil, nil
}

type TokenListParams struct{}

func (s *Server) handleTokenList(ctx context.Context, request *mcp.CallToolRequest, params *TokenListParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, nil, err
	}
	if s.authStore == nil {
		return nil, nil, fmt.Errorf("authentication is disabled")
	}

	tokens, err := s.authStore.ListTokens()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	if len(tokens) == 0 {
		return NewTextResult("No tokens found."), nil, nil
	}

	result := fmt.Sprintf("Found %d token(s):\n\n", len(tokens))
	for _, t := range tokens {
		lastUsed := "never"
		if t.LastUsedAt != nil {
			lastUsed = t.LastUsedAt.Format("2006-01-02 15:04")
		}
		result += fmt.Sprintf("• %s\n", maskToken(t.ID))
		result += fmt.Sprintf("  Name:      %s\n", t.Name)
		result += fmt.Sprintf("  Scope:     %s\n", t.Scope)
		result += fmt.Sprintf("  Created:   %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
		result += fmt.Sprintf("  Last Used: %s\n\n", lastUsed)
	}
	return NewTextResult(result), nil, nil
}

type TokenRevokeParams struct {
	TokenID string `json:"token_id" jsonschema:"full token to revoke"`
}

func (s *Server) handleTokenRevoke(ctx context.Context, request *mcp.CallToolRequest, params *TokenRevokeParams) (*mcp.CallToolResult, any, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, nil, err
	}
	if s.authStore == nil {
		return nil, nil, fmt.Errorf("authentication is disabled")
	}
	if params.TokenID == "" {
		return nil, nil, fmt.Errorf("token_id is required")
	}

	if err := s.authStore.RevokeToken(params.TokenID); err != nil {
		return nil, nil, fmt.Errorf("failed to revoke token: %w", err)
	}
	return NewTextResult(fmt.Sprintf("Token %s revoked.", maskToken(params.TokenID))), nil, nil
}

func maskToken(tokenID string) string {
	if len(tokenID) <= 12 {
		return "***"
	}
	return tokenID[:8] + "..." + tokenID[len(tokenID)-4:]
}
