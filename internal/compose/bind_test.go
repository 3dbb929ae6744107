package compose

import (
	"context"
	"errors"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
)

type fakeInvoker struct {
	invoked []string
}

func (inv *fakeInvoker) Invoke(ctx context.Context, function string, args map[string]interface{}) (interface{}, error) {
	inv.invoked = append(inv.invoked, function)
	return nil, nil
}

func TestBindFunctionDirectives(t *testing.T) {
	ctx := context.Background()

	local := fragmentFromSDL(TierLocal, "local", heredoc.Doc(`
		directive @function(name: String!) on FIELD_DEFINITION

		type Query {
			hello: String
			price(sku: ID!): Float @function(name: "pricing::getPrice")
		}

		type Cart {
			total: Float @function(name: "checkout::cartTotal")
		}
	`))
	local.Resolvers = map[FieldRef]Resolver{
		{Type: "Query", Field: "hello"}: &LocalFunction{},
	}

	cs, err := Compose(ctx, []*Fragment{local})
	if err != nil {
		t.Fatal(err)
	}

	invoker := &fakeInvoker{}
	err = BindFunctionDirectives(cs, invoker)
	if err != nil {
		t.Fatal(err)
	}

	call, ok := cs.Resolvers[FieldRef{Type: "Query", Field: "price"}].(*ExternalFunctionCall)
	if !ok {
		t.Fatal("Query.price is not bound to an external function call")
	}
	if call.Function != "pricing::getPrice" {
		t.Errorf("unexpected function reference: %s", call.Function)
	}

	// Occurrences on non-root types are bound by the same pass.
	call, ok = cs.Resolvers[FieldRef{Type: "Cart", Field: "total"}].(*ExternalFunctionCall)
	if !ok {
		t.Fatal("Cart.total is not bound to an external function call")
	}
	if call.Function != "checkout::cartTotal" {
		t.Errorf("unexpected function reference: %s", call.Function)
	}

	// Fields without the directive keep their original resolver.
	if _, ok := cs.Resolvers[FieldRef{Type: "Query", Field: "hello"}].(*LocalFunction); !ok {
		t.Error("Query.hello resolver was rebound")
	}
}

func TestBindFunctionDirectives_MissingNameArgument(t *testing.T) {
	ctx := context.Background()

	local := fragmentFromSDL(TierLocal, "local", heredoc.Doc(`
		directive @function(name: String) on FIELD_DEFINITION

		type Query {
			price: Float @function
		}
	`))

	cs, err := Compose(ctx, []*Fragment{local})
	if err != nil {
		t.Fatal(err)
	}

	err = BindFunctionDirectives(cs, &fakeInvoker{})
	if err == nil {
		t.Fatal("expected a directive error")
	}
	var directiveErr *DirectiveError
	if !errors.As(err, &directiveErr) {
		t.Fatalf("unexpected error type: %v", err)
	}
	if directiveErr.Type != "Query" || directiveErr.Field != "price" {
		t.Errorf("unexpected directive location: %s.%s", directiveErr.Type, directiveErr.Field)
	}
}

func TestBindFunctionDirectives_NoInvokerConfigured(t *testing.T) {
	ctx := context.Background()

	local := fragmentFromSDL(TierLocal, "local", heredoc.Doc(`
		directive @function(name: String!) on FIELD_DEFINITION

		type Query {
			price: Float @function(name: "pricing::getPrice")
		}
	`))

	cs, err := Compose(ctx, []*Fragment{local})
	if err != nil {
		t.Fatal(err)
	}

	err = BindFunctionDirectives(cs, nil)
	if err == nil {
		t.Fatal("expected an error when directives exist without an invoker")
	}
}

func TestBindFunctionDirectives_NoDirectivesIsNoop(t *testing.T) {
	ctx := context.Background()

	local := fragmentFromSDL(TierLocal, "local", `type Query { hello: String }`)
	cs, err := Compose(ctx, []*Fragment{local})
	if err != nil {
		t.Fatal(err)
	}

	err = BindFunctionDirectives(cs, nil)
	if err != nil {
		t.Fatal(err)
	}
}
