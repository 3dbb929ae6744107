// Package gqlfun runs one-shot operations against a graphql.ExecutableSchema
// without going through the HTTP handler stack.
package gqlfun

import (
	"context"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

func CreateOperationContext(ctx context.Context, schema *ast.Schema, query string, variables map[string]interface{}) (*graphql.OperationContext, gqlerror.List) {
	queryDoc, gErr := parser.ParseQuery(&ast.Source{
		Input: query,
	})
	if gErr != nil {
		return nil, gqlerror.List{gqlerror.WrapIfUnwrapped(gErr)}
	}
	gErrs := validator.Validate(schema, queryDoc)
	if len(gErrs) != 0 {
		return nil, gErrs
	}

	if variables == nil {
		variables = make(map[string]interface{})
	}

	oc := &graphql.OperationContext{
		RawQuery:  query,
		Variables: variables,
		Doc:       queryDoc,
		Operation: queryDoc.Operations[0],
		ResolverMiddleware: func(ctx context.Context, next graphql.Resolver) (interface{}, error) {
			return next(ctx)
		},
	}

	return oc, nil
}

func Execute(ctx context.Context, es graphql.ExecutableSchema, query string, variables map[string]interface{}) *graphql.Response {
	oc, gErrs := CreateOperationContext(ctx, es.Schema(), query, variables)
	if len(gErrs) != 0 {
		return &graphql.Response{Errors: gErrs}
	}
	ctx = graphql.WithOperationContext(ctx, oc)
	ctx = graphql.WithResponseContext(ctx, graphql.DefaultErrorPresenter, graphql.DefaultRecover)

	rh := es.Exec(ctx)
	resp := rh(ctx)
	if gErrs := graphql.GetErrors(ctx); gErrs != nil {
		return &graphql.Response{Errors: gErrs}
	}
	return resp
}
