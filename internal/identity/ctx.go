// Package identity carries the authenticated caller through the model layer.
package identity

import (
	"context"
	"errors"
)

// ErrCannotNewRootCtx is returned when a regular Ctx is requested for user id 0.
var ErrCannotNewRootCtx = errors.New("identity: cannot create a non-root ctx with user id 0")

// Ctx is the read-only identity of the caller of a model operation.
// User id 0 is reserved for the root ctx used by internal flows (login, seeding).
type Ctx struct {
	userID int64
}

// Root returns the privileged ctx.
func Root() Ctx {
	return Ctx{userID: 0}
}

// New returns the ctx of an authenticated user.
func New(userID int64) (Ctx, error) {
	if userID == 0 {
		return Ctx{}, ErrCannotNewRootCtx
	}
	return Ctx{userID: userID}, nil
}

// UserID returns the caller user id.
func (c Ctx) UserID() int64 {
	return c.userID
}

// IsRoot reports whether c is the root ctx.
func (c Ctx) IsRoot() bool {
	return c.userID == 0
}

type ctxKey struct{}

// result is what the resolve middleware leaves on the request: either a Ctx
// or the reason none could be built.
type result struct {
	ctx Ctx
	err error
}

// WithResult stores the outcome of identity resolution in a context.
func WithResult(parent context.Context, c Ctx, err error) context.Context {
	return context.WithValue(parent, ctxKey{}, result{ctx: c, err: err})
}

// FromContext returns the resolved Ctx. ok is false when resolution never ran.
func FromContext(ctx context.Context) (c Ctx, err error, ok bool) {
	r, ok := ctx.Value(ctxKey{}).(result)
	if !ok {
		return Ctx{}, nil, false
	}
	return r.ctx, r.err, true
}
