package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/sync/errgroup"

	"github.com/stitchway/stitchway/internal/compose"
	"github.com/stitchway/stitchway/internal/engine"
	"github.com/stitchway/stitchway/internal/log"
	"github.com/stitchway/stitchway/internal/monolith"
	"github.com/stitchway/stitchway/internal/remotefn"
)

var _ graphql.ExecutableSchema = (*gatewayImpl)(nil)

// GatewayConfig describes the three fragment origins. Local packages are
// required; the remote-function namespace and the monolith are optional.
type GatewayConfig struct {
	LocalPackages []*LocalPackage

	// FunctionNamespace enables discovery of externally hosted function
	// packages. FunctionCatalog and FunctionInvoker must be set with it.
	FunctionNamespace string
	FunctionCatalog   remotefn.Catalog
	FunctionInvoker   compose.FunctionInvoker

	// MonolithURL enables the legacy monolith proxy.
	MonolithURL string

	// HTTPClient is used for monolith traffic. nil means http.DefaultClient.
	HTTPClient *http.Client
}

type gatewayImpl struct {
	sync.RWMutex

	cfg      *GatewayConfig
	composed *compose.ComposedSchema
}

// NewGateway composes the configured origins into one executable schema.
// All startup work happens here: the monolith is introspected and the
// function packages are discovered concurrently, then the fragments are
// merged in fixed order local, remote-function, monolith. Any failure is
// fatal; the gateway never serves a partially composed schema.
func NewGateway(ctx context.Context, cfg *GatewayConfig) (graphql.ExecutableSchema, error) {
	g := &gatewayImpl{cfg: cfg}

	err := g.validate()
	if err != nil {
		return nil, err
	}

	err = g.composeSchema(ctx)
	if err != nil {
		return nil, err
	}

	return g, nil
}

func (g *gatewayImpl) validate() error {
	if len(g.cfg.LocalPackages) == 0 {
		return fmt.Errorf("gateway: at least one local package is required")
	}
	if g.cfg.FunctionNamespace != "" {
		if g.cfg.FunctionCatalog == nil {
			return fmt.Errorf("gateway: function namespace %q is configured without a catalog", g.cfg.FunctionNamespace)
		}
		if g.cfg.FunctionInvoker == nil {
			return fmt.Errorf("gateway: function namespace %q is configured without an invoker", g.cfg.FunctionNamespace)
		}
	}
	return nil
}

func (g *gatewayImpl) composeSchema(ctx context.Context) error {
	logger := log.FromContext(ctx)

	localFragment := MergeLocalPackages(g.cfg.LocalPackages)

	var functionFragment *compose.Fragment
	var monolithFragment *compose.Fragment

	// Discovery and introspection have no ordering dependency; both must
	// finish before the fragments are merged.
	eg, egctx := errgroup.WithContext(ctx)
	if g.cfg.FunctionNamespace != "" {
		eg.Go(func() error {
			collector := &remotefn.Collector{Catalog: g.cfg.FunctionCatalog}
			fragment, packages, err := collector.Collect(egctx, g.cfg.FunctionNamespace)
			if err != nil {
				return err
			}
			for _, pkg := range packages {
				logger.V(1).Info("function package discovered", "package", pkg.Name)
			}
			functionFragment = fragment
			return nil
		})
	}
	if g.cfg.MonolithURL != "" {
		eg.Go(func() error {
			builder := monolith.NewProxyBuilder(g.cfg.MonolithURL)
			builder.Client = g.cfg.HTTPClient
			fragment, err := builder.Build(egctx)
			if err != nil {
				return err
			}
			monolithFragment = fragment
			return nil
		})
	}
	err := eg.Wait()
	if err != nil {
		return err
	}

	fragments := []*compose.Fragment{localFragment}
	if functionFragment != nil {
		fragments = append(fragments, functionFragment)
	}
	if monolithFragment != nil {
		fragments = append(fragments, monolithFragment)
	}

	composed, err := compose.Compose(ctx, fragments)
	if err != nil {
		return err
	}

	err = compose.BindFunctionDirectives(composed, g.cfg.FunctionInvoker)
	if err != nil {
		return err
	}

	g.Lock()
	g.composed = composed
	g.Unlock()

	logger.Info("gateway ready",
		"localPackages", len(g.cfg.LocalPackages),
		"functionNamespace", g.cfg.FunctionNamespace,
		"monolithUrl", g.cfg.MonolithURL,
		"types", len(composed.Schema.Types))

	return nil
}

func (g *gatewayImpl) Schema() *ast.Schema {
	g.RLock()
	defer g.RUnlock()
	if g.composed == nil {
		panic("gateway doesn't have a composed schema")
	}
	return g.composed.Schema
}

func (g *gatewayImpl) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

func (g *gatewayImpl) Exec(ctx context.Context) graphql.ResponseHandler {
	g.RLock()
	composed := g.composed
	g.RUnlock()

	oc := graphql.GetOperationContext(ctx)
	resp := engine.Execute(ctx, composed, oc)
	return func(ctx context.Context) *graphql.Response {
		return resp
	}
}
