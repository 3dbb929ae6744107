package gateway

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/stitchway/stitchway/internal/compose"
)

// LocalPackage is one in-process module's contribution: type declarations,
// field resolvers and the data sources those resolvers use.
type LocalPackage struct {
	Name        string
	TypeDefs    []string
	Resolvers   map[compose.FieldRef]compose.Resolver
	DataSources map[string]compose.DataSource
}

// MergeLocalPackages folds every local package into one local-tier
// fragment. Packages are applied in slice order; on any collision of type
// declarations, resolvers or data source names the later package wins,
// the same rule the composer applies across tiers.
func MergeLocalPackages(packages []*LocalPackage) *compose.Fragment {
	fragment := &compose.Fragment{
		Resolvers:   make(map[compose.FieldRef]compose.Resolver),
		DataSources: make(map[string]compose.DataSource),
		Tier:        compose.TierLocal,
	}

	for _, pkg := range packages {
		for i, typeDefs := range pkg.TypeDefs {
			fragment.TypeDefs = append(fragment.TypeDefs, &ast.Source{
				Name:  fmt.Sprintf("local/%s/%d", pkg.Name, i),
				Input: typeDefs,
			})
		}
		for ref, resolver := range pkg.Resolvers {
			fragment.Resolvers[ref] = resolver
		}
		for name, dataSource := range pkg.DataSources {
			fragment.DataSources[name] = dataSource
		}
	}

	return fragment
}
