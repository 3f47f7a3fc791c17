package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndValidateToken(t *testing.T) {
	store := newTestStore(t)

	token, secret, err := store.CreateToken("ci", ScopeWrite, nil)
	if err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}
	if !strings.HasPrefix(secret, tokenPrefix) {
		t.Errorf("token = %q, want prefix %q", secret, tokenPrefix)
	}
	if token.Scope != ScopeWrite {
		t.Errorf("Scope = %q, want %q", token.Scope, ScopeWrite)
	}

	got, err := store.ValidateToken(secret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if got.Name != "ci" {
		t.Errorf("Name = %q, want %q", got.Name, "ci")
	}
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt not updated on validation")
	}
}

func TestValidateTokenRejectsBadFormat(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
	if _, err := store.ValidateToken(tokenPrefix + "deadbeef"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("ValidateToken() error = %v, want ErrTokenNotFound", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	store := newTestStore(t)

	past := time.Now().Add(-time.Hour)
	_, secret, err := store.CreateToken("old", ScopeRead, &past)
	if err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}

	if _, err := store.ValidateToken(secret); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestCreateTokenRejectsInvalidScope(t *testing.T) {
	store := newTestStore(t)

	if _, _, err := store.CreateToken("bad", "superuser", nil); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("CreateToken() error = %v, want ErrInvalidScope", err)
	}
}

func TestRevokeToken(t *testing.T) {
	store := newTestStore(t)

	_, secret, err := store.CreateToken("temp", ScopeRead, nil)
	if err != nil {
		t.Fatalf("CreateToken() error = %v", err)
	}

	if err := store.RevokeToken(secret); err != nil {
		t.Fatalf("RevokeToken() error = %v", err)
	}
	if _, err := store.ValidateToken(secret); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("ValidateToken() after revoke error = %v, want ErrTokenNotFound", err)
	}
	if err := store.RevokeToken(secret); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("RevokeToken() twice error = %v, want ErrTokenNotFound", err)
	}
}

func TestListTokens(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"a", "b", "c"} {
		if _, _, err := store.CreateToken(name, ScopeAdmin, nil); err != nil {
			t.Fatalf("CreateToken(%q) error = %v", name, err)
		}
	}

	tokens, err := store.ListTokens()
	if err != nil {
		t.Fatalf("ListTokens() error = %v", err)
	}
	if len(tokens) != 3 {
		t.Errorf("len(tokens) = %d, want 3", len(tokens))
	}
}

func TestScopePermissions(t *testing.T) {
	tests := []struct {
		scope    string
		canRead  bool
		canWrite bool
		isAdmin  bool
	}{
		{ScopeRead, true, false, false},
		{ScopeWrite, true, true, false},
		{ScopeAdmin, true, true, true},
	}

	for _, tt := range tests {
		ac := &AuthContext{Type: AuthTypeToken, Token: &Token{ID: "t", Scope: tt.scope}}
		if got := ac.CanRead(); got != tt.canRead {
			t.Errorf("scope %s: CanRead() = %v, want %v", tt.scope, got, tt.canRead)
		}
		if got := ac.CanWrite(); got != tt.canWrite {
			t.Errorf("scope %s: CanWrite() = %v, want %v", tt.scope, got, tt.canWrite)
		}
		if got := ac.IsAdmin(); got != tt.isAdmin {
			t.Errorf("scope %s: IsAdmin() = %v, want %v", tt.scope, got, tt.isAdmin)
		}
	}

	var nilCtx *AuthContext
	if nilCtx.CanRead() || nilCtx.CanWrite() || nilCtx.IsAdmin() {
		t.Error("nil AuthContext should have no permissions")
	}
}
