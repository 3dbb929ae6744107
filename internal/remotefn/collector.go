package remotefn

import (
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/stitchway/stitchway/internal/compose"
	"github.com/stitchway/stitchway/internal/log"
)

// baseDeclarations must precede every package's declarations: the directive
// grammar and the extensible root must exist before extensions reference
// them.
const baseDeclarations = `directive @function(name: String!) on FIELD_DEFINITION

type Query
`

// Collector discovers the function packages in a namespace and folds them
// into one directive-rewritten fragment.
type Collector struct {
	Catalog Catalog
}

// Collect returns the remote-function fragment for a namespace, plus the
// rewritten package descriptors in discovery order. A single package
// failing to parse or rewrite fails the whole collection; composing a
// partial set would silently misroute function calls.
func (c *Collector) Collect(ctx context.Context, namespace string) (*compose.Fragment, []*PackageSchema, error) {
	logger := log.FromContext(ctx)

	packages, err := c.Catalog.Packages(ctx, namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("remotefn: discovery of namespace %q failed: %w", namespace, err)
	}

	sources := []*ast.Source{
		{
			Name:  "remotefn/base",
			Input: baseDeclarations,
		},
	}

	rewritten := make([]*PackageSchema, 0, len(packages))
	for _, pkg := range packages {
		source := &ast.Source{
			Name:  "remotefn/" + pkg.Name,
			Input: pkg.SDL,
		}
		// Parse errors surface here so the failing package is named,
		// not at composition time.
		if _, gErr := parser.ParseSchema(source); gErr != nil {
			return nil, nil, &compose.SchemaParseError{
				Tier:   compose.TierRemoteFunction,
				Source: source.Name,
				Err:    gErr,
			}
		}
		source, err := RewriteFunctionDirectives(source, pkg.Name)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, source)
		rewritten = append(rewritten, &PackageSchema{
			Name: pkg.Name,
			SDL:  source.Input,
		})
	}

	logger.Info("function packages collected",
		"namespace", namespace,
		"packages", len(rewritten))

	return &compose.Fragment{
		TypeDefs: sources,
		Tier:     compose.TierRemoteFunction,
	}, rewritten, nil
}
