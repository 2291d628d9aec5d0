package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by adapter access tokens.
// WorkspaceID selects which Revox credentials a request runs with.
type Claims struct {
	jwt.RegisteredClaims

	WorkspaceID string `json:"workspace_id"`
}

type ctxKey int

const ctxWorkspaceID ctxKey = iota

var ErrNoWorkspace = errors.New("auth: workspace_id not in context")

func WithWorkspace(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, ctxWorkspaceID, workspaceID)
}

func WorkspaceID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxWorkspaceID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoWorkspace
}
