package mcp

import (
	"context"
	"fmt"

	"github.com/s9gf4ult/haskell-mode/internal/auth"
)

// requireAuth extracts auth context and returns error if missing. When
// authentication is disabled every request passes with full access.
func (s *Server) requireAuth(ctx context.Context) (*auth.AuthContext, error) {
	if s.authDisabled {
		return &auth.AuthContext{Type: auth.AuthTypeToken, Token: &auth.Token{ID: "local", Scope: auth.ScopeAdmin}}, nil
	}
	authCtx := auth.FromContext(ctx)
	if authCtx == nil {
		return nil, fmt.Errorf("authentication required")
	}
	return authCtx, nil
}

// requireWriteAccess checks if auth context can perform write operations
func (s *Server) requireWriteAccess(ctx context.Context) (*auth.AuthContext, error) {
	authCtx, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !authCtx.CanWrite() {
		return nil, fmt.Errorf("read-only access, write operations not permitted")
	}
	return authCtx, nil
}

// requireAdmin checks if auth context has admin scope
func (s *Server) requireAdmin(ctx context.Context) (*auth.AuthContext, error) {
	authCtx, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if !authCtx.IsAdmin() {
		return nil, fmt.Errorf("admin access required")
	}
	return authCtx, nil
}
