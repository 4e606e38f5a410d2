package shared

import "context"

// Actor identifies the authenticated user a request acts on behalf of.
// The kernel trusts the identity it is given; authentication happens at
// the transport edge.
type Actor struct {
	ID       int64
	Username string
	Role     Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
