package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/stitchway/stitchway/internal/compose"
)

// Execute resolves one operation against the composed schema. Every root
// field is dispatched by its bound resolver strategy; delegated fields are
// one outbound round trip each, with no batching or retries.
func Execute(ctx context.Context, cs *compose.ComposedSchema, oc *graphql.OperationContext) *graphql.Response {
	op := oc.Operation
	if op == nil {
		op = oc.Doc.Operations.ForName(oc.OperationName)
	}
	if op == nil {
		return errorResponse(gqlerror.Errorf("operation %q is not found in the document", oc.OperationName))
	}

	gErrs := validator.Validate(cs.Schema, oc.Doc)
	if len(gErrs) != 0 {
		return &graphql.Response{Errors: gErrs}
	}

	var rootType *ast.Definition
	switch op.Operation {
	case ast.Query:
		rootType = cs.Schema.Query
	case ast.Mutation:
		rootType = cs.Schema.Mutation
	default:
		return errorResponse(gqlerror.Errorf("%s operations are not supported", op.Operation))
	}
	if rootType == nil {
		return errorResponse(gqlerror.Errorf("schema does not support %s operations", op.Operation))
	}

	ctx = WithDataSources(ctx, cs.DataSources)

	data := make(map[string]interface{})
	var errs gqlerror.List

	for _, field := range collectRootFields(oc.Doc, op.SelectionSet) {
		alias := field.Alias
		if alias == "" {
			alias = field.Name
		}

		if field.Name == "__typename" {
			data[alias] = rootType.Name
			continue
		}
		if strings.HasPrefix(field.Name, "__") {
			errs = append(errs, fieldError(alias, gqlerror.Errorf("introspection is not supported")))
			data[alias] = nil
			continue
		}

		resolver, ok := cs.Resolvers[compose.FieldRef{Type: rootType.Name, Field: field.Name}]
		if !ok {
			errs = append(errs, fieldError(alias, gqlerror.Errorf("no resolver bound for %s.%s", rootType.Name, field.Name)))
			data[alias] = nil
			continue
		}

		switch resolver := resolver.(type) {
		case *compose.LocalFunction:
			args, err := argumentMap(field, oc.Variables)
			if err == nil {
				data[alias], err = resolver.Handler(ctx, args)
			}
			if err != nil {
				errs = append(errs, fieldError(alias, err))
				data[alias] = nil
			}
		case *compose.ExternalFunctionCall:
			args, err := argumentMap(field, oc.Variables)
			if err == nil {
				data[alias], err = resolver.Invoker.Invoke(ctx, resolver.Function, args)
			}
			if err != nil {
				errs = append(errs, fieldError(alias, err))
				data[alias] = nil
			}
		case *compose.RemoteDelegate:
			value, delegateErrs := delegateField(ctx, resolver.Source, op, field, alias, oc)
			data[alias] = value
			errs = append(errs, delegateErrs...)
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		return errorResponse(gqlerror.Errorf("response serialization failed: %v", err))
	}

	return &graphql.Response{
		Data:   b,
		Errors: errs,
	}
}

// delegateField forwards a single root field, with its entire selection
// subtree and the variables it uses, to the owning origin. The origin's
// value for the field is spliced back unchanged; its errors propagate as-is.
func delegateField(
	ctx context.Context,
	source compose.DataSource,
	op *ast.OperationDefinition,
	field *ast.Field,
	alias string,
	oc *graphql.OperationContext,
) (json.RawMessage, gqlerror.List) {
	usedVariables := make(map[string]bool)
	usedFragments := make(map[string]bool)
	collectUsages(oc.Doc, ast.SelectionSet{field}, usedVariables, usedFragments)

	forwarded := &ast.QueryDocument{
		Operations: ast.OperationList{
			{
				Operation:    op.Operation,
				SelectionSet: ast.SelectionSet{field},
			},
		},
	}
	for _, varDef := range op.VariableDefinitions {
		if usedVariables[varDef.Variable] {
			forwarded.Operations[0].VariableDefinitions = append(
				forwarded.Operations[0].VariableDefinitions, varDef)
		}
	}
	for _, fragment := range oc.Doc.Fragments {
		if usedFragments[fragment.Name] {
			forwarded.Fragments = append(forwarded.Fragments, fragment)
		}
	}

	variables := make(map[string]interface{})
	for name := range usedVariables {
		if v, ok := oc.Variables[name]; ok {
			variables[name] = v
		}
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(forwarded)

	resp := source.Process(ctx, &graphql.OperationContext{
		RawQuery:  buf.String(),
		Variables: variables,
		Doc:       forwarded,
		Operation: forwarded.Operations[0],
	})

	var value json.RawMessage
	if len(resp.Data) != 0 {
		fields := make(map[string]json.RawMessage)
		if err := json.Unmarshal(resp.Data, &fields); err != nil {
			return nil, gqlerror.List{fieldError(alias, err)}
		}
		value = fields[alias]
	}

	return value, resp.Errors
}

func collectRootFields(doc *ast.QueryDocument, selectionSet ast.SelectionSet) []*ast.Field {
	var fields []*ast.Field
	for _, selection := range selectionSet {
		switch selection := selection.(type) {
		case *ast.Field:
			fields = append(fields, selection)
		case *ast.InlineFragment:
			fields = append(fields, collectRootFields(doc, selection.SelectionSet)...)
		case *ast.FragmentSpread:
			fragment := doc.Fragments.ForName(selection.Name)
			if fragment != nil {
				fields = append(fields, collectRootFields(doc, fragment.SelectionSet)...)
			}
		}
	}
	return fields
}

// collectUsages records which variables and fragments a selection subtree
// references, so a forwarded operation carries exactly what it needs.
func collectUsages(doc *ast.QueryDocument, selectionSet ast.SelectionSet, variables map[string]bool, fragments map[string]bool) {
	for _, selection := range selectionSet {
		switch selection := selection.(type) {
		case *ast.Field:
			for _, arg := range selection.Arguments {
				collectValueVariables(arg.Value, variables)
			}
			collectDirectiveVariables(selection.Directives, variables)
			collectUsages(doc, selection.SelectionSet, variables, fragments)
		case *ast.InlineFragment:
			collectDirectiveVariables(selection.Directives, variables)
			collectUsages(doc, selection.SelectionSet, variables, fragments)
		case *ast.FragmentSpread:
			collectDirectiveVariables(selection.Directives, variables)
			if !fragments[selection.Name] {
				fragments[selection.Name] = true
				fragment := doc.Fragments.ForName(selection.Name)
				if fragment != nil {
					collectUsages(doc, fragment.SelectionSet, variables, fragments)
				}
			}
		}
	}
}

func collectDirectiveVariables(directives ast.DirectiveList, variables map[string]bool) {
	for _, directive := range directives {
		for _, arg := range directive.Arguments {
			collectValueVariables(arg.Value, variables)
		}
	}
}

func collectValueVariables(value *ast.Value, variables map[string]bool) {
	if value == nil {
		return
	}
	if value.Kind == ast.Variable {
		variables[value.Raw] = true
	}
	for _, child := range value.Children {
		collectValueVariables(child.Value, variables)
	}
}

func argumentMap(field *ast.Field, variables map[string]interface{}) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(field.Arguments))
	for _, arg := range field.Arguments {
		v, err := arg.Value.Value(variables)
		if err != nil {
			return nil, err
		}
		args[arg.Name] = v
	}
	return args, nil
}

func errorResponse(errs ...*gqlerror.Error) *graphql.Response {
	return &graphql.Response{Errors: gqlerror.List(errs)}
}

func fieldError(alias string, err error) *gqlerror.Error {
	if gErr, ok := err.(*gqlerror.Error); ok && len(gErr.Path) != 0 {
		return gErr
	}
	return &gqlerror.Error{
		Message: err.Error(),
		Path:    ast.Path{ast.PathName(alias)},
	}
}
