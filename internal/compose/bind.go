package compose

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// FunctionDirectiveName marks fields whose execution is dispatched to an
// externally hosted function. The name argument must already be
// namespace-qualified when the directive reaches the composed schema.
const FunctionDirectiveName = "function"

// BindFunctionDirectives walks the fully merged schema and binds every
// field carrying the function directive to an ExternalFunctionCall
// resolver. It must run once, after composition; binding per fragment
// would miss occurrences the composer keeps from lower tiers.
func BindFunctionDirectives(cs *ComposedSchema, invoker FunctionInvoker) error {
	for _, def := range cs.Schema.Types {
		if def.BuiltIn || strings.HasPrefix(def.Name, "__") {
			continue
		}
		for _, field := range def.Fields {
			directive := field.Directives.ForName(FunctionDirectiveName)
			if directive == nil {
				continue
			}
			if invoker == nil {
				return &DirectiveError{
					Type:   def.Name,
					Field:  field.Name,
					Reason: "no function invoker configured",
				}
			}
			arg := directive.Arguments.ForName("name")
			if arg == nil || arg.Value == nil || arg.Value.Kind != ast.StringValue || arg.Value.Raw == "" {
				return &DirectiveError{
					Type:   def.Name,
					Field:  field.Name,
					Reason: "name argument must be a non-empty string",
				}
			}
			cs.Resolvers[FieldRef{Type: def.Name, Field: field.Name}] = &ExternalFunctionCall{
				Function: arg.Value.Raw,
				Invoker:  invoker,
			}
		}
	}
	return nil
}
