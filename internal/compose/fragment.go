package compose

import (
	"context"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

// Tier is the precedence level of a schema fragment. Fragments with a
// higher tier win over lower ones when they declare the same type or field.
type Tier int

const (
	TierLocal Tier = iota
	TierRemoteFunction
	TierMonolith
)

func (t Tier) String() string {
	switch t {
	case TierLocal:
		return "local"
	case TierRemoteFunction:
		return "remote-function"
	case TierMonolith:
		return "monolith"
	default:
		return "unknown"
	}
}

// FieldRef identifies one field of one type in a schema.
type FieldRef struct {
	Type  string
	Field string
}

// DataSource processes a single GraphQL operation against some origin.
type DataSource interface {
	Process(ctx context.Context, oc *graphql.OperationContext) *graphql.Response
}

// FunctionInvoker calls an externally hosted function by its
// namespace-qualified name.
type FunctionInvoker interface {
	Invoke(ctx context.Context, function string, args map[string]interface{}) (interface{}, error)
}

// Fragment is one origin's contribution to the composed schema.
// A fragment is immutable once produced; Compose never modifies its inputs.
type Fragment struct {
	TypeDefs    []*ast.Source
	Resolvers   map[FieldRef]Resolver
	DataSources map[string]DataSource
	Tier        Tier
}

// ComposedSchema is the merged result of composing an ordered fragment list.
type ComposedSchema struct {
	Schema      *ast.Schema
	Resolvers   map[FieldRef]Resolver
	DataSources map[string]DataSource
}
