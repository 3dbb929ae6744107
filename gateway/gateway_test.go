package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/stitchway/stitchway/internal/compose"
	"github.com/stitchway/stitchway/internal/gqlfun"
	"github.com/stitchway/stitchway/internal/monolith"
	"github.com/stitchway/stitchway/internal/remotefn"
)

type fakeCatalog struct {
	packages []*remotefn.PackageSchema
	err      error
}

func (c *fakeCatalog) Packages(ctx context.Context, namespace string) ([]*remotefn.PackageSchema, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.packages, nil
}

type fakeInvoker struct {
	results map[string]interface{}
	calls   []string
}

func (inv *fakeInvoker) Invoke(ctx context.Context, function string, args map[string]interface{}) (interface{}, error) {
	inv.calls = append(inv.calls, function)
	result, ok := inv.results[function]
	if !ok {
		return nil, fmt.Errorf("no such function: %s", function)
	}
	return result, nil
}

func helloPackage() *LocalPackage {
	return &LocalPackage{
		Name: "greeting",
		TypeDefs: []string{heredoc.Doc(`
			type Query {
				hello: String
			}
		`)},
		Resolvers: map[compose.FieldRef]compose.Resolver{
			{Type: "Query", Field: "hello"}: &compose.LocalFunction{
				Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
					return "world", nil
				},
			},
		},
	}
}

func TestNewGateway_LocalAndRemoteFunctions(t *testing.T) {
	ctx := context.Background()

	catalog := &fakeCatalog{
		packages: []*remotefn.PackageSchema{
			{
				Name: "pkgB",
				SDL: heredoc.Doc(`
					extend type Query {
						greet: String @function(name: "greet")
					}
				`),
			},
		},
	}
	invoker := &fakeInvoker{results: map[string]interface{}{
		"pkgB::greet": "Hi there",
	}}

	gw, err := NewGateway(ctx, &GatewayConfig{
		LocalPackages:     []*LocalPackage{helloPackage()},
		FunctionNamespace: "storefront",
		FunctionCatalog:   catalog,
		FunctionInvoker:   invoker,
	})
	if err != nil {
		t.Fatal(err)
	}

	queryType := gw.Schema().Types["Query"]
	if queryType.Fields.ForName("hello") == nil {
		t.Error("Query.hello is not exposed")
	}
	if queryType.Fields.ForName("greet") == nil {
		t.Error("Query.greet is not exposed")
	}

	resp := gqlfun.Execute(ctx, gw, `{ hello greet }`, nil)
	if len(resp.Errors) != 0 {
		t.Fatal(resp.Errors)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["hello"] != "world" {
		t.Errorf("unexpected hello: %v", data["hello"])
	}
	if data["greet"] != "Hi there" {
		t.Errorf("unexpected greet: %v", data["greet"])
	}
	// Dispatch goes to the namespace-qualified reference.
	if len(invoker.calls) != 1 || invoker.calls[0] != "pkgB::greet" {
		t.Errorf("unexpected invoker calls: %v", invoker.calls)
	}
}

func TestNewGateway_LocalOnly(t *testing.T) {
	ctx := context.Background()

	gw, err := NewGateway(ctx, &GatewayConfig{
		LocalPackages: []*LocalPackage{helloPackage()},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := gqlfun.Execute(ctx, gw, `{ hello }`, nil)
	if len(resp.Errors) != 0 {
		t.Fatal(resp.Errors)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["hello"] != "world" {
		t.Errorf("unexpected hello: %v", data["hello"])
	}
}

func TestNewGateway_LocalPackagesLastWins(t *testing.T) {
	ctx := context.Background()

	first := helloPackage()
	second := &LocalPackage{
		Name:     "greeting-v2",
		TypeDefs: []string{`extend type Query { hello: String }`},
		Resolvers: map[compose.FieldRef]compose.Resolver{
			{Type: "Query", Field: "hello"}: &compose.LocalFunction{
				Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
					return "world v2", nil
				},
			},
		},
	}

	gw, err := NewGateway(ctx, &GatewayConfig{
		LocalPackages: []*LocalPackage{first, second},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := gqlfun.Execute(ctx, gw, `{ hello }`, nil)
	if len(resp.Errors) != 0 {
		t.Fatal(resp.Errors)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["hello"] != "world v2" {
		t.Errorf("the later package's resolver did not win: %v", data["hello"])
	}
}

func TestNewGateway_MonolithFailureIsFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewGateway(context.Background(), &GatewayConfig{
		LocalPackages: []*LocalPackage{helloPackage()},
		MonolithURL:   ts.URL,
	})
	if err == nil {
		t.Fatal("expected startup to fail")
	}
	var unreachableErr *monolith.UnreachableError
	if !errors.As(err, &unreachableErr) {
		t.Fatalf("unexpected error type: %v", err)
	}
}

func TestNewGateway_DiscoveryFailureIsFatal(t *testing.T) {
	_, err := NewGateway(context.Background(), &GatewayConfig{
		LocalPackages:     []*LocalPackage{helloPackage()},
		FunctionNamespace: "storefront",
		FunctionCatalog:   &fakeCatalog{err: fmt.Errorf("catalog is down")},
		FunctionInvoker:   &fakeInvoker{},
	})
	if err == nil {
		t.Fatal("expected startup to fail")
	}
}

func TestNewGateway_ConfigValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewGateway(ctx, &GatewayConfig{})
	if err == nil {
		t.Error("expected an error without local packages")
	}

	_, err = NewGateway(ctx, &GatewayConfig{
		LocalPackages:     []*LocalPackage{helloPackage()},
		FunctionNamespace: "storefront",
	})
	if err == nil {
		t.Error("expected an error for a namespace without a catalog")
	}

	_, err = NewGateway(ctx, &GatewayConfig{
		LocalPackages:     []*LocalPackage{helloPackage()},
		FunctionNamespace: "storefront",
		FunctionCatalog:   &fakeCatalog{},
	})
	if err == nil {
		t.Error("expected an error for a namespace without an invoker")
	}
}
