// Package log carries a logr.Logger through context. Components never hold
// a logger; they take it from the context of the call that reached them.
package log

import (
	"context"

	"github.com/go-logr/logr"
)

func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}

func WithLogger(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

func WithName(ctx context.Context, name string) context.Context {
	return logr.NewContext(ctx, logr.FromContextOrDiscard(ctx).WithName(name))
}
