package engine

import (
	"context"

	"github.com/stitchway/stitchway/internal/compose"
)

type dataSourcesKey struct{}

// WithDataSources makes the composed schema's data sources available to
// local resolver handlers.
func WithDataSources(ctx context.Context, dataSources map[string]compose.DataSource) context.Context {
	return context.WithValue(ctx, dataSourcesKey{}, dataSources)
}

func DataSourcesFromContext(ctx context.Context) map[string]compose.DataSource {
	dataSources, _ := ctx.Value(dataSourcesKey{}).(map[string]compose.DataSource)
	return dataSources
}
