// Package auditctx carries request provenance from the transport layer to the audit trail.
package auditctx

import "context"

// Actor describes who issued a request and from where. UserID is empty for anonymous callers.
type Actor struct {
	UserID    string
	Username  string
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor returns a child of ctx carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// WithIdentity records the authenticated user on top of any provenance already in ctx.
func WithIdentity(ctx context.Context, userID, username string) context.Context {
	actor, _ := FromContext(ctx)
	actor.UserID = userID
	actor.Username = username
	return WithActor(ctx, actor)
}

// FromContext returns the actor stored in ctx, if any.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
