package actorcontext

import (
	"context"
	"strings"

	"github.com/smallbiznis/shipledger/internal/errs"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// ParseRole normalizes a role header value. Unknown roles are rejected.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCustomer:
		return RoleCustomer, true
	default:
		return "", false
	}
}

// Actor is the authenticated caller resolved at the edge.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Subject is the authorization subject string for the actor.
func (a Actor) Subject() string {
	return "user:" + a.ID
}

type actorKey struct{}

// WithActor stores the caller in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the caller from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || strings.TrimSpace(actor.ID) == "" || actor.Role == "" {
		return Actor{}, false
	}
	return actor, true
}

// Require returns the caller or a Forbidden error when none is attached.
func Require(ctx context.Context) (Actor, error) {
	actor, ok := FromContext(ctx)
	if !ok {
		return Actor{}, errs.Forbidden("caller identity required")
	}
	return actor, nil
}

func RequireAdmin(ctx context.Context) (Actor, error) {
	actor, err := Require(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !actor.IsAdmin() {
		return Actor{}, errs.Forbidden("admin role required")
	}
	return actor, nil
}
