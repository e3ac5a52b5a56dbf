// Package requestid assigns a correlation id to each unit of work: one HTTP
// step attempt in internal/httpstep.Runner.RunStep, and (kept from the
// teacher, unchanged) one inbound request on the admin HTTP surface —
// adapted from the teacher's internal/requestid with the same shape.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New generates a random UUID v4 correlation id.
func New() string {
	return uuid.NewString()
}

// WithRequestID returns a copy of ctx with the correlation id attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the correlation id from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
