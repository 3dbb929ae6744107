package remotefn

import (
	"errors"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func TestRewriteFunctionDirectives(t *testing.T) {
	source := &ast.Source{
		Name: "remotefn/catalog",
		Input: heredoc.Doc(`
			extend type Query {
				getPrice(sku: ID!): Float @function(name: "getPrice")
				getStock(sku: ID!): Int @function(name: "getStock") @deprecated(reason: "use inventory")
			}
		`),
	}

	rewritten, err := RewriteFunctionDirectives(source, "catalog")
	if err != nil {
		t.Fatal(err)
	}

	doc, gErr := parser.ParseSchema(rewritten)
	if gErr != nil {
		t.Fatal(gErr)
	}

	queryExt := doc.Extensions.ForName("Query")
	if queryExt == nil {
		t.Fatal("Query extension is gone after rewriting")
	}

	price := queryExt.Fields.ForName("getPrice")
	name := price.Directives.ForName("function").Arguments.ForName("name")
	if name.Value.Raw != "catalog::getPrice" {
		t.Errorf("unexpected function reference: %s", name.Value.Raw)
	}

	stock := queryExt.Fields.ForName("getStock")
	name = stock.Directives.ForName("function").Arguments.ForName("name")
	if name.Value.Raw != "catalog::getStock" {
		t.Errorf("unexpected function reference: %s", name.Value.Raw)
	}
	// Unrelated directives are untouched.
	if stock.Directives.ForName("deprecated") == nil {
		t.Error("@deprecated was dropped by the rewrite")
	}
}

func TestRewriteFunctionDirectives_Deterministic(t *testing.T) {
	sdl := heredoc.Doc(`
		extend type Query {
			getPrice(sku: ID!): Float @function(name: "getPrice")
		}
	`)

	first, err := RewriteFunctionDirectives(&ast.Source{Name: "a", Input: sdl}, "catalog")
	if err != nil {
		t.Fatal(err)
	}
	second, err := RewriteFunctionDirectives(&ast.Source{Name: "b", Input: sdl}, "catalog")
	if err != nil {
		t.Fatal(err)
	}
	if first.Input != second.Input {
		t.Error("rewriting the same package twice produced different documents")
	}
	if !strings.Contains(first.Input, `"catalog::getPrice"`) {
		t.Errorf("rewritten document is missing the qualified reference:\n%s", first.Input)
	}
}

func TestRewriteFunctionDirectives_MissingName(t *testing.T) {
	source := &ast.Source{
		Name: "remotefn/catalog",
		Input: heredoc.Doc(`
			extend type Query {
				getPrice: Float @function
			}
		`),
	}

	_, err := RewriteFunctionDirectives(source, "catalog")
	if err == nil {
		t.Fatal("expected a rewrite error")
	}
	var rewriteErr *RewriteError
	if !errors.As(err, &rewriteErr) {
		t.Fatalf("unexpected error type: %v", err)
	}
	if rewriteErr.Namespace != "catalog" {
		t.Errorf("unexpected namespace: %s", rewriteErr.Namespace)
	}
	if rewriteErr.Type != "Query" || rewriteErr.Field != "getPrice" {
		t.Errorf("unexpected location: %s.%s", rewriteErr.Type, rewriteErr.Field)
	}
}

func TestRewriteFunctionDirectives_NonStringName(t *testing.T) {
	source := &ast.Source{
		Name:  "remotefn/catalog",
		Input: `extend type Query { getPrice: Float @function(name: 42) }`,
	}

	_, err := RewriteFunctionDirectives(source, "catalog")
	var rewriteErr *RewriteError
	if !errors.As(err, &rewriteErr) {
		t.Fatalf("unexpected error: %v", err)
	}
}
